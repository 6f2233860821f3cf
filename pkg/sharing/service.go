package sharing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// shareLockTTL bounds how long a share mutation may hold its lock when a
// Locker is configured.
const shareLockTTL = 10 * time.Second

// Locker serializes share mutations across replicas. Optional; a single
// replica relies on the store transaction alone.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// querier is the read surface shared by the pooled handle and an open
// transaction.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// EntityWithItems is a single entity with its line items and, for share
// recipients, the permission level they hold. Owners get no permission
// level; ownership implies full access.
type EntityWithItems[R Record, I any] struct {
	Entity          R                  `json:"entity"`
	Items           []I                `json:"items"`
	PermissionLevel *models.Permission `json:"permission_level,omitempty"`
}

// Service implements ownership-scoped persistence and the share lifecycle
// for one entity kind. R is the entity row type, I its line item row type
// (NoItems for kinds without items).
type Service[R Record, I any] struct {
	db     database.DB
	logger ectologger.Logger
	cfg    Config
	rows   *database.Struct
	items  *database.Struct
	procs  *ProcedureClient
	lock   Locker
}

// NewService builds a service for one entity kind. The config is validated
// eagerly so a misconfigured kind fails at startup.
func NewService[R Record, I any](db database.DB, logger ectologger.Logger, cfg Config) (*Service[R, I], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service[R, I]{
		db:     db,
		logger: logger,
		cfg:    cfg,
		rows:   database.NewStruct(new(R)),
		items:  database.NewStruct(new(I)),
		procs:  NewProcedureClient(db, logger),
	}, nil
}

// UseShareLock installs a cross-replica lock around share mutations.
func (s *Service[R, I]) UseShareLock(lock Locker) {
	s.lock = lock
}

// Config returns the kind configuration the service was built with.
func (s *Service[R, I]) Config() Config {
	return s.cfg
}

// Create inserts the given row and returns it as stored. A uniqueness
// violation on the kind's name constraint is surfaced as DuplicateNameError.
func (s *Service[R, I]) Create(ctx context.Context, row R) (R, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.Create")
	defer span.End()

	var out R
	ib := s.rows.InsertInto(s.cfg.Table, row).Returning("*")
	query, args := ib.Build()

	if err := s.db.GetContext(ctx, &out, query, args...); err != nil {
		err = translateConflict(err, s.cfg.UniqueConstraint, s.cfg.TypeName)
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": s.cfg.Table,
		}).Error("failed to create entity")
		return out, err
	}

	return out, nil
}

// Update applies the given column assignments to one row and returns the
// updated row. sql.ErrNoRows passes through when the id matches nothing.
func (s *Service[R, I]) Update(ctx context.Context, id string, set map[string]any) (R, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(s.cfg.Table)

	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	assignments := make([]string, 0, len(cols))
	for _, col := range cols {
		assignments = append(assignments, ub.Assign(col, set[col]))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))
	ub.SQL("RETURNING *")
	query, args := ub.Build()

	var out R
	if err := s.db.GetContext(ctx, &out, query, args...); err != nil {
		err = translateConflict(err, s.cfg.UniqueConstraint, s.cfg.TypeName)
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": s.cfg.Table,
			"id":    id,
		}).Error("failed to update entity")
		return out, err
	}

	return out, nil
}

// Delete removes one row. Deleting an id that matches nothing is a no-op.
func (s *Service[R, I]) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.Delete")
	defer span.End()

	delb := database.NewDeleteBuilder()
	delb.DeleteFrom(s.cfg.Table)
	delb.Where(delb.Equal("id", id))
	query, args := delb.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": s.cfg.Table,
			"id":    id,
		}).Error("failed to delete entity")
		return err
	}

	return nil
}

// FindByID fetches one row by id with no access check. Returns nil, nil
// when no row matches.
func (s *Service[R, I]) FindByID(ctx context.Context, id string) (*R, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.FindByID")
	defer span.End()

	sb := s.rows.SelectFrom(s.cfg.Table)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var out R
	if err := s.db.GetContext(ctx, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": s.cfg.Table,
			"id":    id,
		}).Error("failed to fetch entity")
		return nil, err
	}

	return &out, nil
}

// ListOwned returns every entity the user owns, newest first, with no share
// annotations. This is the listing for kinds without share support.
func (s *Service[R, I]) ListOwned(ctx context.Context, userID string) ([]R, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.ListOwned")
	defer span.End()

	sb := s.rows.SelectFrom(s.cfg.Table)
	sb.Where(sb.Equal(s.cfg.OwnerColumn, userID))
	sb.OrderBy("created_at DESC")
	query, args := sb.Build()

	rows := []R{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table":  s.cfg.Table,
			"userId": userID,
		}).Error("failed to list owned entities")
		return nil, err
	}
	return rows, nil
}

// ListWithPermissions returns every entity the user owns followed by every
// entity shared with them, re-sorted by creation time, newest first. Owned
// rows carry an is-shared flag, shared rows carry the permission level.
func (s *Service[R, I]) ListWithPermissions(ctx context.Context, userID string) ([]WithPermission[R], error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.ListWithPermissions")
	defer span.End()

	if !s.cfg.Shareable() {
		return nil, ErrSharingUnsupported
	}

	owned, err := s.listOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	shared, err := s.listShared(ctx, userID)
	if err != nil {
		return nil, err
	}

	return MergeByCreatedAt(owned, shared), nil
}

func (s *Service[R, I]) listOwned(ctx context.Context, userID string) ([]WithPermission[R], error) {
	sb := s.rows.SelectFrom(s.cfg.Table)
	sb.Where(sb.Equal(s.cfg.OwnerColumn, userID))
	sb.OrderBy("created_at DESC")
	query, args := sb.Build()

	rows := []R{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table":  s.cfg.Table,
			"userId": userID,
		}).Error("failed to list owned entities")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.RecordID())
	}

	sharedSet, err := s.sharedEntityIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]WithPermission[R], 0, len(rows))
	for _, row := range rows {
		isShared := sharedSet[row.RecordID()]
		out = append(out, WithPermission[R]{Entity: row, IsShared: &isShared})
	}
	return out, nil
}

// sharedEntityIDs reports which of the given entities have at least one
// share row.
func (s *Service[R, I]) sharedEntityIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	sb := database.NewSelectBuilder()
	sb.Select(fmt.Sprintf("DISTINCT %s", s.cfg.ShareForeignKeyColumn))
	sb.From(s.cfg.ShareTable)
	sb.Where(sb.In(s.cfg.ShareForeignKeyColumn, asAnySlice(ids)...))
	query, args := sb.Build()

	sharedIDs := []string{}
	if err := s.db.SelectContext(ctx, &sharedIDs, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"shareTable": s.cfg.ShareTable,
		}).Error("failed to resolve shared entity ids")
		return nil, err
	}

	set := make(map[string]bool, len(sharedIDs))
	for _, id := range sharedIDs {
		set[id] = true
	}
	return set, nil
}

func (s *Service[R, I]) listShared(ctx context.Context, userID string) ([]WithPermission[R], error) {
	sb := database.NewSelectBuilder()
	sb.Select(
		"id",
		fmt.Sprintf("%s AS entity_id", s.cfg.ShareForeignKeyColumn),
		"shared_with_user_id",
		"shared_by_user_id",
		"permission_level",
		"created_at",
	)
	sb.From(s.cfg.ShareTable)
	sb.Where(sb.Equal("shared_with_user_id", userID))
	query, args := sb.Build()

	shares := []models.Share{}
	if err := s.db.SelectContext(ctx, &shares, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"shareTable": s.cfg.ShareTable,
			"userId":     userID,
		}).Error("failed to list shares for user")
		return nil, err
	}
	if len(shares) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(shares))
	for _, share := range shares {
		ids = append(ids, share.EntityID)
	}

	eb := s.rows.SelectFrom(s.cfg.Table)
	eb.Where(eb.In("id", asAnySlice(ids)...))
	entityQuery, entityArgs := eb.Build()

	rows := []R{}
	if err := s.db.SelectContext(ctx, &rows, entityQuery, entityArgs...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": s.cfg.Table,
		}).Error("failed to fetch shared entities")
		return nil, err
	}

	byID := make(map[string]R, len(rows))
	for _, row := range rows {
		byID[row.RecordID()] = row
	}

	out := make([]WithPermission[R], 0, len(shares))
	for _, share := range shares {
		row, ok := byID[share.EntityID]
		if !ok {
			// share row pointing at a deleted entity; skip it
			continue
		}
		perm := share.PermissionLevel
		out = append(out, WithPermission[R]{Entity: row, PermissionLevel: &perm})
	}
	return out, nil
}

// GetWithItems fetches one entity with its line items for the given caller.
// Owners are admitted with no share lookup. Non-owners need a share row and
// get its permission level attached; otherwise AccessDeniedError. A
// non-owner read of a kind without share support is ErrSharingUnsupported.
// Returns nil, nil when the entity does not exist.
func (s *Service[R, I]) GetWithItems(ctx context.Context, id, userID string) (*EntityWithItems[R, I], error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.GetWithItems")
	defer span.End()

	row, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	items := []I{}
	if s.cfg.HasItems() {
		items, err = s.listItems(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	result := &EntityWithItems[R, I]{Entity: *row, Items: items}

	if grant := Authorize((*row).RecordOwnerID(), userID, nil); grant.Decision == DecisionOwner {
		return result, nil
	}

	if !s.cfg.Shareable() {
		return nil, ErrSharingUnsupported
	}

	share, err := s.findShare(ctx, s.db, id, userID)
	if err != nil {
		return nil, err
	}

	grant := Authorize((*row).RecordOwnerID(), userID, share)
	if grant.Decision != DecisionShared {
		return nil, &AccessDeniedError{TypeName: s.cfg.TypeName}
	}

	perm := grant.Permission
	result.PermissionLevel = &perm
	return result, nil
}

func (s *Service[R, I]) listItems(ctx context.Context, entityID string) ([]I, error) {
	sb := s.items.SelectFrom(s.cfg.ItemsTable)
	sb.Where(sb.Equal(s.cfg.ItemsForeignKeyColumn, entityID))
	sb.OrderBy("created_at ASC")
	query, args := sb.Build()

	items := []I{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"itemsTable": s.cfg.ItemsTable,
			"entityId":   entityID,
		}).Error("failed to list entity items")
		return nil, err
	}
	return items, nil
}

// ItemIDs returns the ids of every line item attached to the entity.
func (s *Service[R, I]) ItemIDs(ctx context.Context, entityID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.ItemIDs")
	defer span.End()

	if !s.cfg.HasItems() {
		return nil, ErrItemsUnsupported
	}

	sb := database.NewSelectBuilder()
	sb.Select("id")
	sb.From(s.cfg.ItemsTable)
	sb.Where(sb.Equal(s.cfg.ItemsForeignKeyColumn, entityID))
	query, args := sb.Build()

	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"itemsTable": s.cfg.ItemsTable,
			"entityId":   entityID,
		}).Error("failed to list entity item ids")
		return nil, err
	}
	return ids, nil
}

// CreateItems inserts a batch of line items in one statement. An empty
// batch is a no-op.
func (s *Service[R, I]) CreateItems(ctx context.Context, items []I) error {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.CreateItems")
	defer span.End()

	if !s.cfg.HasItems() {
		return ErrItemsUnsupported
	}
	if len(items) == 0 {
		return nil
	}

	values := make([]any, 0, len(items))
	for i := range items {
		values = append(values, items[i])
	}

	ib := s.items.InsertInto(s.cfg.ItemsTable, values...)
	query, args := ib.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"itemsTable": s.cfg.ItemsTable,
			"count":      len(items),
		}).Error("failed to insert entity items")
		return err
	}
	return nil
}

// DeleteItems removes the given line items. An empty batch is a no-op.
func (s *Service[R, I]) DeleteItems(ctx context.Context, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.DeleteItems")
	defer span.End()

	if !s.cfg.HasItems() {
		return ErrItemsUnsupported
	}
	if len(ids) == 0 {
		return nil
	}

	delb := database.NewDeleteBuilder()
	delb.DeleteFrom(s.cfg.ItemsTable)
	delb.Where(delb.In("id", asAnySlice(ids)...))
	query, args := delb.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"itemsTable": s.cfg.ItemsTable,
			"count":      len(ids),
		}).Error("failed to delete entity items")
		return err
	}
	return nil
}

// SharedUsers returns the recipient roster for one entity via the kind's
// stored procedure.
func (s *Service[R, I]) SharedUsers(ctx context.Context, entityID string) ([]models.SharedUser, error) {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.SharedUsers")
	defer span.End()

	if !s.cfg.Shareable() {
		return nil, ErrSharingUnsupported
	}
	return s.procs.SharedUsers(ctx, s.cfg.SharedUsersProcedure, entityID)
}

// Share grants userQuery's resolved user access to the entity at the given
// permission level. The target is resolved by free-text search, preferring
// an exact case-insensitive email match. Returns UserNotFoundError when
// nothing matches and AlreadySharedError when a share already exists.
func (s *Service[R, I]) Share(ctx context.Context, entityID, userQuery string, permission models.Permission, sharedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.Share")
	defer span.End()

	if !s.cfg.Shareable() {
		return ErrSharingUnsupported
	}

	candidates, err := s.procs.SearchUsers(ctx, userQuery)
	if err != nil {
		return err
	}
	recipient := resolveCandidate(candidates, userQuery)
	if recipient == nil {
		return &UserNotFoundError{Query: userQuery}
	}

	insert := func() error {
		return s.insertShare(ctx, entityID, recipient.ID, permission, sharedBy)
	}

	if s.lock != nil {
		key := fmt.Sprintf("share:%s:%s:%s", s.cfg.ShareTable, entityID, recipient.ID)
		return s.lock.WithLock(ctx, key, shareLockTTL, insert)
	}
	return insert()
}

// insertShare runs the duplicate check and insert on one transaction. The
// share tables carry no uniqueness constraint on (entity, recipient), so
// concurrent writers on separate replicas can still both pass the check;
// the optional Locker closes that window.
func (s *Service[R, I]) insertShare(ctx context.Context, entityID, recipientID string, permission models.Permission, sharedBy string) error {
	// rollback runs with the caller's ctx: a tx this function began is
	// closed on error paths, one inherited from the caller stays open
	callerCtx := ctx
	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(callerCtx)

	existing, err := s.findShare(ctx, tx, entityID, recipientID)
	if err != nil {
		return err
	}
	if existing != nil {
		return &AlreadySharedError{TypeName: s.cfg.TypeName}
	}

	ib := database.NewInsertBuilder()
	ib = ib.InsertInto(s.cfg.ShareTable)
	ib = ib.Cols("id", s.cfg.ShareForeignKeyColumn, "shared_with_user_id", "shared_by_user_id", "permission_level", "created_at")
	ib = ib.Values(uuid.New().String(), entityID, recipientID, sharedBy, permission, time.Now().UTC())
	query, args := ib.Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"shareTable": s.cfg.ShareTable,
			"entityId":   entityID,
		}).Error("failed to insert share")
		return err
	}

	return tx.Commit(ctx)
}

// Unshare revokes the recipient's share. Revoking a share that does not
// exist is a no-op.
func (s *Service[R, I]) Unshare(ctx context.Context, entityID, recipientID string) error {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.Unshare")
	defer span.End()

	if !s.cfg.Shareable() {
		return ErrSharingUnsupported
	}

	delb := database.NewDeleteBuilder()
	delb.DeleteFrom(s.cfg.ShareTable)
	delb.Where(
		delb.Equal(s.cfg.ShareForeignKeyColumn, entityID),
		delb.Equal("shared_with_user_id", recipientID),
	)
	query, args := delb.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"shareTable": s.cfg.ShareTable,
			"entityId":   entityID,
		}).Error("failed to revoke share")
		return err
	}
	return nil
}

// UpdateSharePermission changes the permission level on an existing share.
// Updating a share that does not exist is a no-op.
func (s *Service[R, I]) UpdateSharePermission(ctx context.Context, entityID, recipientID string, permission models.Permission) error {
	ctx, span := tracing.StartSpan(ctx, "sharing.Service.UpdateSharePermission")
	defer span.End()

	if !s.cfg.Shareable() {
		return ErrSharingUnsupported
	}

	ub := database.NewUpdateBuilder()
	ub.Update(s.cfg.ShareTable)
	ub.Set(ub.Assign("permission_level", permission))
	ub.Where(
		ub.Equal(s.cfg.ShareForeignKeyColumn, entityID),
		ub.Equal("shared_with_user_id", recipientID),
	)
	query, args := ub.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"shareTable": s.cfg.ShareTable,
			"entityId":   entityID,
		}).Error("failed to update share permission")
		return err
	}
	return nil
}

// findShare fetches the share row for (entity, recipient), nil when none
// exists. q is either the pooled handle or an open transaction.
func (s *Service[R, I]) findShare(ctx context.Context, q querier, entityID, recipientID string) (*models.Share, error) {
	sb := database.NewSelectBuilder()
	sb.Select(
		"id",
		fmt.Sprintf("%s AS entity_id", s.cfg.ShareForeignKeyColumn),
		"shared_with_user_id",
		"shared_by_user_id",
		"permission_level",
		"created_at",
	)
	sb.From(s.cfg.ShareTable)
	sb.Where(
		sb.Equal(s.cfg.ShareForeignKeyColumn, entityID),
		sb.Equal("shared_with_user_id", recipientID),
	)
	query, args := sb.Build()

	var share models.Share
	if err := q.GetContext(ctx, &share, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

// resolveCandidate picks the share recipient from search results: an exact
// case-insensitive email match wins, otherwise the first candidate.
func resolveCandidate(candidates []models.ShareCandidate, userQuery string) *models.ShareCandidate {
	if len(candidates) == 0 {
		return nil
	}
	for i := range candidates {
		if strings.EqualFold(candidates[i].Email, userQuery) {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

func asAnySlice(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}
