package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Search(ctx context.Context, q models.SearchQuery) (*models.PaginatedResult[models.Company], error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*models.PaginatedResult[models.Company])
	return res, args.Error(1)
}

func (m *MockService) GetDetail(ctx context.Context, category models.Category, corporateNumber string) (*models.DetailResult, error) {
	args := m.Called(ctx, category, corporateNumber)
	res, _ := args.Get(0).(*models.DetailResult)
	return res, args.Error(1)
}

func (m *MockService) GetUpdateInfo(ctx context.Context, category models.Category, from, to string, page int) (*models.UpdateInfoPage, error) {
	args := m.Called(ctx, category, from, to, page)
	res, _ := args.Get(0).(*models.UpdateInfoPage)
	return res, args.Error(1)
}

func newRegistry(t *testing.T) (*Registry, *MockService) {
	svc := new(MockService)
	r, err := NewRegistry(svc, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r, svc
}

func TestRegistry_List(t *testing.T) {
	r, _ := newRegistry(t)

	var names []string
	for _, tool := range r.List() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.True(t, json.Valid(tool.Schema), tool.Name)
	}
	assert.Equal(t, []string{
		"search",
		"get_basic_info", "get_certification", "get_commendation", "get_finance",
		"get_patent", "get_procurement", "get_subsidy", "get_workplace",
		"get_update_info", "get_update_info_certification", "get_update_info_commendation",
		"get_update_info_finance", "get_update_info_patent", "get_update_info_procurement",
		"get_update_info_subsidy", "get_update_info_workplace",
	}, names)
}

func TestRegistry_Schemas(t *testing.T) {
	r, _ := newRegistry(t)

	tool, ok := r.Lookup("get_finance")
	require.True(t, ok)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(tool.Schema, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []any{"corporateNumber"}, schema["required"])
	assert.Equal(t, "string", tool.ParamType("corporateNumber"))

	search, ok := r.Lookup("search")
	require.True(t, ok)
	assert.Equal(t, "integer", search.ParamType("net_sales_from"))
	assert.Equal(t, "integer", search.ParamType("page"))
	assert.Equal(t, "boolean", search.ParamType("exist_flg"))
	assert.Equal(t, "string", search.ParamType("name"))
	assert.Equal(t, "", search.ParamType("nope"))

	updates, ok := r.Lookup("get_update_info_patent")
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(updates.Schema, &schema))
	assert.ElementsMatch(t, []any{"from", "to"}, schema["required"])
}

func TestRegistry_CallDetail(t *testing.T) {
	r, svc := newRegistry(t)
	want := &models.DetailResult{Raw: "ok"}
	svc.On("GetDetail", mock.Anything, models.CategoryFinance, "1234567890123").Return(want, nil)

	got, err := r.Call(context.Background(), "get_finance", json.RawMessage(`{"corporateNumber":"1234567890123"}`))
	require.NoError(t, err)
	assert.Same(t, want, got)
	svc.AssertExpectations(t)
}

func TestRegistry_CallBasicInfo(t *testing.T) {
	r, svc := newRegistry(t)
	svc.On("GetDetail", mock.Anything, models.CategoryBasic, "1234567890123").Return(&models.DetailResult{}, nil)

	_, err := r.Call(context.Background(), "get_basic_info", json.RawMessage(`{"corporateNumber":"1234567890123"}`))
	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestRegistry_CallRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    string
		message string
		field   string
	}{
		{"missing corporate number", "get_finance", `{}`, "corporateNumber is required", "corporateNumber"},
		{"null corporate number", "get_patent", `{"corporateNumber":null}`, "corporateNumber is required", "corporateNumber"},
		{"empty args", "get_basic_info", ``, "corporateNumber is required", "corporateNumber"},
		{"wrong type", "get_finance", `{"corporateNumber":1234567890123}`, "", "corporateNumber"},
		{"unknown property", "get_finance", `{"corporateNumber":"1234567890123","x":1}`, "", ""},
		{"not an object", "search", `[1]`, "arguments must be a JSON object", ""},
		{"not json", "search", `{`, "arguments must be valid JSON", ""},
		{"missing to", "get_update_info", `{"from":"20240101"}`, "to is required", "to"},
		{"search wrong type", "search", `{"limit":"ten"}`, "", "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := newRegistry(t)

			_, err := r.Call(context.Background(), tt.tool, json.RawMessage(tt.args))
			require.Error(t, err)
			assert.True(t, errors.Is(err, e.ErrInvalidInput))

			var v *e.ValidationError
			require.True(t, errors.As(err, &v))
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
			if tt.field != "" {
				assert.Equal(t, tt.field, v.Field)
			}
			svc.AssertNotCalled(t, "GetDetail", mock.Anything, mock.Anything, mock.Anything)
			svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestRegistry_CallSearch(t *testing.T) {
	r, svc := newRegistry(t)
	page := &models.PaginatedResult[models.Company]{Items: []models.Company{}, From: 1, Size: 1}
	svc.On("Search", mock.Anything, mock.MatchedBy(func(q models.SearchQuery) bool {
		return q.Name != nil && *q.Name == "トヨタ" && q.Limit != nil && *q.Limit == 1 &&
			q.ExistFlg != nil && *q.ExistFlg && q.CapitalStockFrom != nil && *q.CapitalStockFrom == 1000
	})).Return(page, nil)

	got, err := r.Call(context.Background(), "search", json.RawMessage(`{"name":"トヨタ","limit":1,"exist_flg":true,"capital_stock_from":1000}`))
	require.NoError(t, err)
	assert.Same(t, page, got)
	svc.AssertExpectations(t)
}

func TestRegistry_CallUpdateInfo(t *testing.T) {
	r, svc := newRegistry(t)
	svc.On("GetUpdateInfo", mock.Anything, models.CategorySubsidy, "20240101", "20240131", 1).Return(&models.UpdateInfoPage{}, nil)
	svc.On("GetUpdateInfo", mock.Anything, models.CategoryBasic, "20240101", "20240131", 3).Return(&models.UpdateInfoPage{}, nil)

	_, err := r.Call(context.Background(), "get_update_info_subsidy", json.RawMessage(`{"from":"20240101","to":"20240131"}`))
	require.NoError(t, err)
	_, err = r.Call(context.Background(), "get_update_info", json.RawMessage(`{"from":"20240101","to":"20240131","page":3}`))
	require.NoError(t, err)
	svc.AssertExpectations(t)

	_, err = r.Call(context.Background(), "get_update_info", json.RawMessage(`{"from":"20240101","to":"20240131","page":0}`))
	assert.True(t, errors.Is(err, e.ErrRange))
}

func TestRegistry_CallPropagatesServiceErrors(t *testing.T) {
	r, svc := newRegistry(t)
	upstream := &e.CommunicationError{Op: "get_patent", Err: &e.APIError{StatusCode: 503, Message: "down"}}
	svc.On("GetDetail", mock.Anything, models.CategoryPatent, "1234567890123").Return(nil, upstream)

	_, err := r.Call(context.Background(), "get_patent", json.RawMessage(`{"corporateNumber":"1234567890123"}`))
	assert.Same(t, upstream, err)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.Call(context.Background(), "get_everything", nil)
	assert.True(t, errors.Is(err, e.ErrUnknownTool))
}

func TestTool_ArgsFromQuery(t *testing.T) {
	r, _ := newRegistry(t)
	search, _ := r.Lookup("search")

	raw, err := search.ArgsFromQuery(url.Values{
		"name":             {"X"},
		"limit":            {"5"},
		"exist_flg":        {"false"},
		"net_sales_to":     {"100"},
		"prefecture":       {"13"},
		"unknown_argument": {"y"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"X","limit":5,"exist_flg":false,"net_sales_to":100,"prefecture":"13","unknown_argument":"y"}`, string(raw))

	_, err = search.ArgsFromQuery(url.Values{"limit": {"many"}})
	assert.True(t, errors.Is(err, e.ErrInvalidInput))
	_, err = search.ArgsFromQuery(url.Values{"exist_flg": {"perhaps"}})
	assert.True(t, errors.Is(err, e.ErrInvalidInput))
}
