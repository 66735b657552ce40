// Package controller implements the service layer: one operation per
// upstream gBizINFO endpoint, composed from the query model, the HTTP client
// and the response adapters.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/adapter"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/config"
	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/events"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/validation"
	"go.uber.org/zap"
)

// Requester is the slice of the HTTP client the service depends on.
type Requester interface {
	Get(ctx context.Context, rawURL string) (any, error)
}

type EventProducer interface {
	Produce(ev events.LookupEvent)
}

// CompanyService talks to the upstream registry and maps its answers into
// domain records.
type CompanyService struct {
	client   Requester
	producer EventProducer
	baseURL  string
	logger   *zap.Logger
}

// NewCompanyService constructs a CompanyService. A nil producer disables
// lookup events.
func NewCompanyService(client Requester, producer EventProducer, cfg *config.Config, logger *zap.Logger) *CompanyService {
	if producer == nil {
		producer = events.NopProducer{}
	}
	return &CompanyService{
		client:   client,
		producer: producer,
		baseURL:  cfg.BaseURL,
		logger:   logger.Named("company_service"),
	}
}

// Search validates q, queries the registry and maps the answer into a page of
// companies. From echoes the requested page and Size the requested limit.
func (s *CompanyService) Search(ctx context.Context, q models.SearchQuery) (*models.PaginatedResult[models.Company], error) {
	n, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	ev := events.NewLookupEvent(events.CompanySearched)
	raw, err := s.client.Get(ctx, s.baseURL+"?"+n.Values().Encode())
	if err != nil {
		s.emitFailure(ev, err)
		return nil, s.rewrap("search", err)
	}

	obj, _ := raw.(map[string]any)
	items := adapter.Companies(adapter.FirstList(obj, "hojin-infos", "items", "results"))
	page := &models.PaginatedResult[models.Company]{
		Items: items,
		Total: adapter.FirstInt(obj, len(items), "total", "count", "total-count"),
		From:  n.PageOrDefault(),
		Size:  n.LimitOrDefault(),
	}
	if page.Items == nil {
		page.Items = []models.Company{}
	}

	ev.Count = len(items)
	s.emit(ev)
	return page, nil
}

// GetDetail fetches the basic record or one detail category of a company.
func (s *CompanyService) GetDetail(ctx context.Context, category models.Category, corporateNumber string) (*models.DetailResult, error) {
	cn, err := validation.ValidateCorporateNumber(corporateNumber)
	if err != nil {
		return nil, err
	}

	u := s.baseURL + "/" + url.PathEscape(cn)
	if category != models.CategoryBasic {
		u += "/" + string(category)
	}

	ev := events.NewLookupEvent(events.CompanyLookedUp)
	ev.Category = category.Label()
	ev.CorporateNumber = cn

	raw, err := s.client.Get(ctx, u)
	if err != nil {
		s.emitFailure(ev, err)
		return nil, s.rewrap("get_"+category.Label(), err)
	}

	result := s.toDetail(raw)
	if result.Info != nil {
		ev.Count = len(result.Info.HojinInfos)
	}
	s.emit(ev)
	return result, nil
}

func (s *CompanyService) GetBasicInfo(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryBasic, corporateNumber)
}

func (s *CompanyService) GetCertification(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryCertification, corporateNumber)
}

func (s *CompanyService) GetCommendation(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryCommendation, corporateNumber)
}

func (s *CompanyService) GetFinance(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryFinance, corporateNumber)
}

func (s *CompanyService) GetPatent(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryPatent, corporateNumber)
}

func (s *CompanyService) GetProcurement(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryProcurement, corporateNumber)
}

func (s *CompanyService) GetSubsidy(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategorySubsidy, corporateNumber)
}

func (s *CompanyService) GetWorkplace(ctx context.Context, corporateNumber string) (*models.DetailResult, error) {
	return s.GetDetail(ctx, models.CategoryWorkplace, corporateNumber)
}

// GetUpdateInfo lists companies whose records (or one category of them)
// changed between from and to, both yyyyMMdd. A page below 1 means the first
// page.
func (s *CompanyService) GetUpdateInfo(ctx context.Context, category models.Category, from, to string, page int) (*models.UpdateInfoPage, error) {
	if _, err := validation.ValidateYYYYMMDDField("from", from); err != nil {
		return nil, err
	}
	if _, err := validation.ValidateYYYYMMDDField("to", to); err != nil {
		return nil, err
	}
	if page < 1 {
		page = models.DefaultPage
	}

	u := s.baseURL + "/updateInfo"
	if category != models.CategoryBasic {
		u += "/" + string(category)
	}
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("page", strconv.Itoa(page))

	ev := events.NewLookupEvent(events.UpdatesListed)
	ev.Category = category.Label()

	raw, err := s.client.Get(ctx, u+"?"+q.Encode())
	if err != nil {
		s.emitFailure(ev, err)
		return nil, s.rewrap("get_update_info_"+category.Label(), err)
	}

	obj, _ := raw.(map[string]any)
	items := adapter.Companies(adapter.FirstList(obj, "hojin-infos"))
	if items == nil {
		items = []models.Company{}
	}
	result := &models.UpdateInfoPage{
		Items:      items,
		PageNumber: adapter.FirstInt(obj, page, "pageNumber"),
		TotalCount: adapter.FirstInt(obj, len(items), "totalCount"),
		TotalPage:  adapter.FirstInt(obj, 1, "totalPage"),
	}

	ev.Count = len(items)
	s.emit(ev)
	return result, nil
}

// toDetail decodes a JSON object into the detail envelope. Anything else, or
// an object that does not fit the envelope, is passed through untouched.
func (s *CompanyService) toDetail(raw any) *models.DetailResult {
	obj, ok := raw.(map[string]any)
	if !ok {
		return &models.DetailResult{Raw: raw}
	}

	data, err := json.Marshal(obj)
	if err == nil {
		var info models.HojinInfoResponse
		if err = json.Unmarshal(data, &info); err == nil {
			return &models.DetailResult{Info: &info}
		}
	}
	s.logger.Warn("detail response does not match schema, passing through", zap.Error(err))
	return &models.DetailResult{Raw: raw}
}

func (s *CompanyService) rewrap(op string, err error) error {
	s.logger.Error("upstream call failed", zap.String("op", op), zap.Error(err))
	return &e.CommunicationError{Op: op, Err: err}
}

func (s *CompanyService) emit(ev events.LookupEvent) {
	go func() {
		s.producer.Produce(ev)
	}()
}

func (s *CompanyService) emitFailure(ev events.LookupEvent, err error) {
	ev.Failed = true
	var api *e.APIError
	if errors.As(err, &api) {
		ev.StatusCode = api.StatusCode
	}
	s.emit(ev)
}
