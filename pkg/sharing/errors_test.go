package sharing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslateConflict(t *testing.T) {
	nameConflict := &pq.Error{
		Code:       "23505",
		Constraint: "templates_user_id_name_key",
	}

	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, translateConflict(nil, "templates_user_id_name_key", "Template"))
	})

	t.Run("violation on the configured constraint becomes DuplicateNameError", func(t *testing.T) {
		err := translateConflict(nameConflict, "templates_user_id_name_key", "Template")

		var dup *DuplicateNameError
		assert.ErrorAs(t, err, &dup)
		assert.Equal(t, "Template", dup.TypeName)
	})

	t.Run("wrapped violations are still recognized", func(t *testing.T) {
		wrapped := fmt.Errorf("insert failed: %w", nameConflict)

		err := translateConflict(wrapped, "templates_user_id_name_key", "Template")

		var dup *DuplicateNameError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("violation on another constraint passes through", func(t *testing.T) {
		fkConflict := &pq.Error{
			Code:       "23505",
			Constraint: "shared_templates_pkey",
		}

		err := translateConflict(fkConflict, "templates_user_id_name_key", "Template")

		assert.Equal(t, error(fkConflict), err)
	})

	t.Run("non-uniqueness store errors pass through", func(t *testing.T) {
		notNull := &pq.Error{
			Code:       "23502",
			Constraint: "templates_user_id_name_key",
		}

		err := translateConflict(notNull, "templates_user_id_name_key", "Template")

		assert.Equal(t, error(notNull), err)
	})

	t.Run("non-postgres errors pass through", func(t *testing.T) {
		plain := errors.New("connection reset")

		assert.Equal(t, plain, translateConflict(plain, "templates_user_id_name_key", "Template"))
	})
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "a template with this name already exists", (&DuplicateNameError{TypeName: "Template"}).Error())
	assert.Equal(t, "you do not have access to this plan", (&AccessDeniedError{TypeName: "Plan"}).Error())
	assert.Equal(t, `no user found matching "nobody@example.com"`, (&UserNotFoundError{Query: "nobody@example.com"}).Error())
	assert.Equal(t, "this template is already shared with that user", (&AlreadySharedError{TypeName: "Template"}).Error())
}
