package sharing

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// searchUsersProcedure resolves free-text queries to share candidates across
// every entity kind.
const searchUsersProcedure = "search_users_for_sharing"

// ProcedureClient invokes the stored procedures backing user resolution and
// recipient rosters.
type ProcedureClient struct {
	db     database.DB
	logger ectologger.Logger
}

func NewProcedureClient(db database.DB, logger ectologger.Logger) *ProcedureClient {
	return &ProcedureClient{
		db:     db,
		logger: logger,
	}
}

// SharedUsers returns every recipient of the given entity via the kind's
// configured procedure. An entity with no shares yields an empty slice.
func (p *ProcedureClient) SharedUsers(ctx context.Context, procedure, entityID string) ([]models.SharedUser, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.ProcedureClient.SharedUsers")
	defer span.End()

	query := fmt.Sprintf(
		"SELECT user_id, user_name, user_email, permission_level, shared_at FROM %s($1)",
		pq.QuoteIdentifier(procedure),
	)

	users := []models.SharedUser{}
	if err := p.db.SelectContext(ctx, &users, query, entityID); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"procedure": procedure,
			"entityId":  entityID,
		}).Error("failed to fetch shared users")
		return nil, err
	}

	return users, nil
}

// SearchUsers resolves a free-text query to candidate recipients.
func (p *ProcedureClient) SearchUsers(ctx context.Context, userQuery string) ([]models.ShareCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.ProcedureClient.SearchUsers")
	defer span.End()

	query := fmt.Sprintf(
		"SELECT id, email, name FROM %s($1)",
		pq.QuoteIdentifier(searchUsersProcedure),
	)

	candidates := []models.ShareCandidate{}
	if err := p.db.SelectContext(ctx, &candidates, query, userQuery); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("failed to search users for sharing")
		return nil, err
	}

	return candidates, nil
}
