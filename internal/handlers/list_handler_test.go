package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktree/backend/internal/models"
	"tasktree/backend/testutil"
)

func TestLists_CreateAndGet(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	groceries := testutil.CreateTestList(t, r, token, "Groceries")
	assert.NotZero(t, groceries.ID)
	assert.Equal(t, "Groceries", groceries.Title)
	testutil.CreateTestList(t, r, token, "Chores")

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/lists", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lists []models.List
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lists))
	require.Len(t, lists, 2)
	assert.Equal(t, "Groceries", lists[0].Title)
	assert.Equal(t, "Chores", lists[1].Title)

	w = testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/lists/%d", groceries.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.List
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, groceries.ID, got.ID)
}

func TestLists_Validation(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/lists", token, map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoJSON(t, r, http.MethodGet, "/api/lists/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid ID format")

	w = testutil.DoJSON(t, r, http.MethodGet, "/api/lists/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLists_OtherUsersAreHidden(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	userToken, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)
	adminToken, err := testutil.LoginAndGetToken(t, r, testutil.AdminEmail, testutil.AdminPassword)
	require.NoError(t, err)

	mine := testutil.CreateTestList(t, r, userToken, "mine")

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/lists", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/lists/%d/tree", mine.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/lists/%d", mine.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLists_TreeScenario(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	list := testutil.CreateTestList(t, r, token, "Groceries")
	produce := testutil.CreateTestItem(t, r, token, list.ID, nil, "Produce")
	testutil.CreateTestItem(t, r, token, list.ID, &produce.ID, "Apples")

	w := testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/lists/%d/tree", list.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		List  models.List `json:"list"`
		Items []struct {
			Content   string `json:"content"`
			Completed bool   `json:"completed"`
			SubItems  []struct {
				Content   string            `json:"content"`
				Completed bool              `json:"completed"`
				SubItems  []json.RawMessage `json:"sub_items"`
			} `json:"sub_items"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Groceries", body.List.Title)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Produce", body.Items[0].Content)
	assert.False(t, body.Items[0].Completed)
	require.Len(t, body.Items[0].SubItems, 1)
	assert.Equal(t, "Apples", body.Items[0].SubItems[0].Content)
	assert.NotNil(t, body.Items[0].SubItems[0].SubItems)
	assert.Empty(t, body.Items[0].SubItems[0].SubItems)
}

func TestLists_OverviewAndDelete(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	a := testutil.CreateTestList(t, r, token, "A")
	b := testutil.CreateTestList(t, r, token, "B")
	root := testutil.CreateTestItem(t, r, token, a.ID, nil, "root")
	child := testutil.CreateTestItem(t, r, token, a.ID, &root.ID, "child")
	testutil.CreateTestItem(t, r, token, b.ID, nil, "other")

	w := testutil.DoJSON(t, r, http.MethodGet, "/api/overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overview []models.ListTree
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	require.Len(t, overview, 2)
	require.Len(t, overview[0].Items, 1)
	assert.Len(t, overview[0].Items[0].SubItems, 1)
	assert.Len(t, overview[1].Items, 1)

	w = testutil.DoJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/lists/%d", a.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.DoJSON(t, r, http.MethodGet, fmt.Sprintf("/api/items/%d", child.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoJSON(t, r, http.MethodGet, "/api/overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	require.Len(t, overview, 1)
	assert.Equal(t, "B", overview[0].List.Title)
}
