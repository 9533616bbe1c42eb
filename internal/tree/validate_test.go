package tree

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/models"
)

func ptr(v int64) *int64 { return &v }

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"trimmed", "  Groceries ", "Groceries", nil},
		{"empty", "", "", ErrEmpty},
		{"only spaces", "   ", "", ErrEmpty},
		{"at limit", strings.Repeat("a", MaxTitleLen), strings.Repeat("a", MaxTitleLen), nil},
		{"over limit", strings.Repeat("a", MaxTitleLen+1), "", ErrTooLong},
		{"multibyte at limit", strings.Repeat("買", MaxTitleLen), strings.Repeat("買", MaxTitleLen), nil},
		{"invalid utf8", "Groceries \xff", "", ErrInvalidText},
		{"truncated multibyte", "買"[:2], "", ErrInvalidText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTitle(tt.in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, errors.Is(err, apperr.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateContent(t *testing.T) {
	_, err := ValidateContent(strings.Repeat("x", MaxContentLen+1))
	assert.True(t, errors.Is(err, ErrTooLong))

	got, err := ValidateContent("\tApples\n")
	require.NoError(t, err)
	assert.Equal(t, "Apples", got)

	_, err = ValidateContent("\xff\xfe")
	assert.True(t, errors.Is(err, ErrInvalidText))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestValidateOwner(t *testing.T) {
	assert.NoError(t, ValidateOwner(1))
	assert.True(t, errors.Is(ValidateOwner(0), apperr.ErrValidation))
	assert.True(t, errors.Is(ValidateOwner(-3), ErrInvalidOwnerID))
}

func TestValidateParent(t *testing.T) {
	parent := &models.Item{ID: 5, ListID: 1}
	assert.NoError(t, ValidateParent(parent, 1))

	err := ValidateParent(parent, 2)
	assert.True(t, errors.Is(err, ErrCrossList))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestValidateMove(t *testing.T) {
	item := &models.Item{ID: 1, ListID: 10}
	sibling := &models.Item{ID: 2, ListID: 10}
	grandchild := &models.Item{ID: 3, ListID: 10, ParentID: ptr(4)}
	other := &models.Item{ID: 7, ListID: 20}

	tests := []struct {
		name      string
		parent    *models.Item
		target    int64
		ancestors []int64
		wantErr   error
	}{
		{"to root", nil, 10, nil, nil},
		{"to root of other list", nil, 20, nil, nil},
		{"under sibling", sibling, 10, nil, nil},
		{"under itself", item, 10, nil, ErrSelfParent},
		{"under own descendant", grandchild, 10, []int64{4, 1}, ErrIntoSubtree},
		{"under item of other list", other, 10, nil, ErrCrossList},
		{"into other list under its item", other, 20, nil, nil},
		{"into other list keeping old parent", sibling, 20, nil, ErrStaleParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMove(item, tt.parent, tt.target, tt.ancestors)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
		})
	}
}

func TestVerifyForest(t *testing.T) {
	ok := []*models.Item{
		{ID: 1, ListID: 1},
		{ID: 2, ListID: 1, ParentID: ptr(1)},
		{ID: 3, ListID: 1, ParentID: ptr(2)},
	}
	assert.NoError(t, VerifyForest(ok))
	assert.NoError(t, VerifyForest(nil))

	cyclic := []*models.Item{
		{ID: 1, ListID: 1, ParentID: ptr(3)},
		{ID: 2, ListID: 1, ParentID: ptr(1)},
		{ID: 3, ListID: 1, ParentID: ptr(2)},
	}
	assert.True(t, errors.Is(VerifyForest(cyclic), ErrCycle))

	self := []*models.Item{{ID: 1, ListID: 1, ParentID: ptr(1)}}
	assert.True(t, errors.Is(VerifyForest(self), ErrCycle))

	dangling := []*models.Item{{ID: 1, ListID: 1, ParentID: ptr(9)}}
	assert.True(t, errors.Is(VerifyForest(dangling), ErrMissingParent))

	crossList := []*models.Item{{ID: 1, ListID: 1}, {ID: 2, ListID: 2, ParentID: ptr(1)}}
	assert.True(t, errors.Is(VerifyForest(crossList), ErrCrossList))
}
