package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubService answers every lookup with canned data or err.
type stubService struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (s *stubService) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *stubService) Search(_ context.Context, q models.SearchQuery) (*models.PaginatedResult[models.Company], error) {
	if err := s.record("search"); err != nil {
		return nil, err
	}
	pref := "東京都"
	name := ""
	if q.Name != nil {
		name = *q.Name
	}
	return &models.PaginatedResult[models.Company]{
		Items: []models.Company{{CorporateNumber: "1234567890123", Name: name, Prefecture: &pref}},
		Total: 1,
		From:  q.PageOrDefault(),
		Size:  q.LimitOrDefault(),
	}, nil
}

func (s *stubService) GetDetail(_ context.Context, category models.Category, corporateNumber string) (*models.DetailResult, error) {
	if err := s.record("detail:" + category.Label() + ":" + corporateNumber); err != nil {
		return nil, err
	}
	name := "サンプル株式会社"
	return &models.DetailResult{Info: &models.HojinInfoResponse{
		HojinInfos: []models.HojinInfo{{CorporateNumber: &corporateNumber, Name: &name}},
	}}, nil
}

func (s *stubService) GetUpdateInfo(_ context.Context, category models.Category, from, to string, page int) (*models.UpdateInfoPage, error) {
	if err := s.record("updates:" + category.Label() + ":" + from + ":" + to); err != nil {
		return nil, err
	}
	return &models.UpdateInfoPage{Items: []models.Company{}, PageNumber: page, TotalCount: 0, TotalPage: 1}, nil
}

func newTestRegistry(t *testing.T, svc *stubService) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(svc, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}
