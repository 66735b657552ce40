package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 1000
	MinPage      = 1
	MaxPage      = 10
	MinLimit     = 0
	MaxLimit     = 5000
)

var (
	csvDigitsPattern = regexp.MustCompile(`^[0-9]+(,[0-9]+)*$`)
	csvGradePattern  = regexp.MustCompile(`^[A-D](,[A-D])*$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

// SearchQuery holds the optional search filters. A nil field is "not
// provided". Use Normalize to obtain a validated copy.
type SearchQuery struct {
	Name            *string `json:"name,omitempty" jsonschema:"description=Company name (partial match)"`
	CorporateNumber *string `json:"corporate_number,omitempty" jsonschema:"description=13-digit corporate number"`
	CorporateType   *string `json:"corporate_type,omitempty" jsonschema:"description=Corporate type codes (comma-separated digits)"`
	ExistFlg        *bool   `json:"exist_flg,omitempty" jsonschema:"description=Whether activity information exists"`
	Prefecture      *string `json:"prefecture,omitempty" jsonschema:"description=Prefecture code (JIS X 0401 2 digits) or name"`
	City            *string `json:"city,omitempty" jsonschema:"description=City code (JIS X 0402 3 digits) or name; requires prefecture"`
	Address         *string `json:"address,omitempty" jsonschema:"description=Address (free text)"`
	Industry        *string `json:"industry,omitempty" jsonschema:"description=Industry (free text or code)"`
	BusinessItem    *string `json:"business_item,omitempty" jsonschema:"description=Business item codes (comma-separated digits)"`
	FoundedYear     *string `json:"founded_year,omitempty" jsonschema:"description=Founded years (comma-separated digits)"`
	SalesArea       *string `json:"sales_area,omitempty" jsonschema:"description=Sales area master codes (comma-separated digits)"`

	UnifiedQualification      *string `json:"unified_qualification,omitempty" jsonschema:"description=Unified qualification grades (comma-separated A-D)"`
	UnifiedQualificationSub01 *string `json:"unified_qualification_sub01,omitempty" jsonschema:"description=Grade for manufacturing of goods (comma-separated A-D)"`
	UnifiedQualificationSub02 *string `json:"unified_qualification_sub02,omitempty" jsonschema:"description=Grade for sale of goods (comma-separated A-D)"`
	UnifiedQualificationSub03 *string `json:"unified_qualification_sub03,omitempty" jsonschema:"description=Grade for provision of services (comma-separated A-D)"`
	UnifiedQualificationSub04 *string `json:"unified_qualification_sub04,omitempty" jsonschema:"description=Grade for purchase of goods (comma-separated A-D)"`

	NetSalesFrom           *int64 `json:"net_sales_from,omitempty" jsonschema:"description=Net sales lower bound"`
	NetSalesTo             *int64 `json:"net_sales_to,omitempty" jsonschema:"description=Net sales upper bound"`
	NetIncomeLossFrom      *int64 `json:"net_income_loss_from,omitempty" jsonschema:"description=Net income or loss lower bound"`
	NetIncomeLossTo        *int64 `json:"net_income_loss_to,omitempty" jsonschema:"description=Net income or loss upper bound"`
	TotalAssetsFrom        *int64 `json:"total_assets_from,omitempty" jsonschema:"description=Total assets lower bound"`
	TotalAssetsTo          *int64 `json:"total_assets_to,omitempty" jsonschema:"description=Total assets upper bound"`
	OperatingRevenue1From  *int64 `json:"operating_revenue1_from,omitempty" jsonschema:"description=Operating revenue lower bound"`
	OperatingRevenue1To    *int64 `json:"operating_revenue1_to,omitempty" jsonschema:"description=Operating revenue upper bound"`
	OperatingRevenue2From  *int64 `json:"operating_revenue2_from,omitempty" jsonschema:"description=Operating income lower bound"`
	OperatingRevenue2To    *int64 `json:"operating_revenue2_to,omitempty" jsonschema:"description=Operating income upper bound"`
	OrdinaryIncomeLossFrom *int64 `json:"ordinary_income_loss_from,omitempty" jsonschema:"description=Ordinary income or loss lower bound"`
	OrdinaryIncomeLossTo   *int64 `json:"ordinary_income_loss_to,omitempty" jsonschema:"description=Ordinary income or loss upper bound"`
	OrdinaryIncomeFrom     *int64 `json:"ordinary_income_from,omitempty" jsonschema:"description=Ordinary revenue lower bound"`
	OrdinaryIncomeTo       *int64 `json:"ordinary_income_to,omitempty" jsonschema:"description=Ordinary revenue upper bound"`
	CapitalStockFrom       *int64 `json:"capital_stock_from,omitempty" jsonschema:"description=Capital stock lower bound"`
	CapitalStockTo         *int64 `json:"capital_stock_to,omitempty" jsonschema:"description=Capital stock upper bound"`
	EmployeeNumberFrom     *int64 `json:"employee_number_from,omitempty" jsonschema:"description=Employee count lower bound"`
	EmployeeNumberTo       *int64 `json:"employee_number_to,omitempty" jsonschema:"description=Employee count upper bound"`

	EstablishmentFrom *string `json:"establishment_from,omitempty" jsonschema:"description=Establishment date lower bound (YYYY-MM-DD)"`
	EstablishmentTo   *string `json:"establishment_to,omitempty" jsonschema:"description=Establishment date upper bound (YYYY-MM-DD)"`

	NameMajorShareholders                  *string `json:"name_major_shareholders,omitempty" jsonschema:"description=Major shareholder name"`
	AverageContinuousServiceYears          *string `json:"average_continuous_service_years,omitempty" jsonschema:"description=Average continuous service years"`
	AverageAge                             *string `json:"average_age,omitempty" jsonschema:"description=Average employee age"`
	MonthAveragePredeterminedOvertimeHours *string `json:"month_average_predetermined_overtime_hours,omitempty" jsonschema:"description=Monthly average overtime hours"`
	FemaleWorkersProportion                *string `json:"female_workers_proportion,omitempty" jsonschema:"description=Female workers proportion"`
	Year                                   *string `json:"year,omitempty" jsonschema:"description=Year"`
	Ministry                               *string `json:"ministry,omitempty" jsonschema:"description=Ministry"`
	Source                                 *string `json:"source,omitempty" jsonschema:"description=Source"`

	Page  *int `json:"page,omitempty" jsonschema:"description=Page number (1-10; default 1)"`
	Limit *int `json:"limit,omitempty" jsonschema:"description=Items per page (0-5000; default 1000)"`
}

type stringFilter struct {
	param string
	value **string
}

type rangeFilter struct {
	field string
	param string
	value *int64
}

// stringFilters lists every free-form string filter with its upstream key.
func (q *SearchQuery) stringFilters() []stringFilter {
	return []stringFilter{
		{"name", &q.Name},
		{"corporate_number", &q.CorporateNumber},
		{"corporate_type", &q.CorporateType},
		{"prefecture", &q.Prefecture},
		{"city", &q.City},
		{"address", &q.Address},
		{"industry", &q.Industry},
		{"business_item", &q.BusinessItem},
		{"founded_year", &q.FoundedYear},
		{"sales_area", &q.SalesArea},
		{"unified_qualification", &q.UnifiedQualification},
		{"unified_qualification_sub01", &q.UnifiedQualificationSub01},
		{"unified_qualification_sub02", &q.UnifiedQualificationSub02},
		{"unified_qualification_sub03", &q.UnifiedQualificationSub03},
		{"unified_qualification_sub04", &q.UnifiedQualificationSub04},
		{"establishment_from", &q.EstablishmentFrom},
		{"establishment_to", &q.EstablishmentTo},
		{"name_major_shareholders", &q.NameMajorShareholders},
		{"average_continuous_service_years", &q.AverageContinuousServiceYears},
		{"average_age", &q.AverageAge},
		{"month_average_predetermined_overtime_hours", &q.MonthAveragePredeterminedOvertimeHours},
		{"female_workers_proportion", &q.FemaleWorkersProportion},
		{"year", &q.Year},
		{"ministry", &q.Ministry},
		{"source", &q.Source},
	}
}

// rangeFilters lists the numeric bounds with their upstream keys.
func (q *SearchQuery) rangeFilters() []rangeFilter {
	return []rangeFilter{
		{"net_sales_from", "net_sales_summary_of_business_results_from", q.NetSalesFrom},
		{"net_sales_to", "net_sales_summary_of_business_results_to", q.NetSalesTo},
		{"net_income_loss_from", "net_income_loss_summary_of_business_results_from", q.NetIncomeLossFrom},
		{"net_income_loss_to", "net_income_loss_summary_of_business_results_to", q.NetIncomeLossTo},
		{"total_assets_from", "total_assets_summary_of_business_results_from", q.TotalAssetsFrom},
		{"total_assets_to", "total_assets_summary_of_business_results_to", q.TotalAssetsTo},
		{"operating_revenue1_from", "operating_revenue1_summary_of_business_results_from", q.OperatingRevenue1From},
		{"operating_revenue1_to", "operating_revenue1_summary_of_business_results_to", q.OperatingRevenue1To},
		{"operating_revenue2_from", "operating_revenue2_summary_of_business_results_from", q.OperatingRevenue2From},
		{"operating_revenue2_to", "operating_revenue2_summary_of_business_results_to", q.OperatingRevenue2To},
		{"ordinary_income_loss_from", "ordinary_income_loss_summary_of_business_results_from", q.OrdinaryIncomeLossFrom},
		{"ordinary_income_loss_to", "ordinary_income_loss_summary_of_business_results_to", q.OrdinaryIncomeLossTo},
		{"ordinary_income_from", "ordinary_income_summary_of_business_results_from", q.OrdinaryIncomeFrom},
		{"ordinary_income_to", "ordinary_income_summary_of_business_results_to", q.OrdinaryIncomeTo},
		{"capital_stock_from", "capital_stock_from", q.CapitalStockFrom},
		{"capital_stock_to", "capital_stock_to", q.CapitalStockTo},
		{"employee_number_from", "employee_number_from", q.EmployeeNumberFrom},
		{"employee_number_to", "employee_number_to", q.EmployeeNumberTo},
	}
}

// Normalize validates q and returns a copy where every empty string is
// replaced by nil and Page/Limit carry their defaults. The first failing check
// is returned; checks run in a fixed order.
func (q SearchQuery) Normalize() (*SearchQuery, error) {
	n := q
	for _, f := range n.stringFilters() {
		if *f.value != nil && **f.value == "" {
			*f.value = nil
		}
	}

	for _, f := range n.rangeFilters() {
		if f.value != nil && *f.value < 0 {
			return nil, e.NewValidationError(e.ErrRange, f.field, "must be >= 0")
		}
	}

	for _, f := range []struct {
		field string
		value *string
	}{
		{"corporate_type", n.CorporateType},
		{"business_item", n.BusinessItem},
		{"founded_year", n.FoundedYear},
		{"sales_area", n.SalesArea},
	} {
		if f.value != nil && !csvDigitsPattern.MatchString(*f.value) {
			return nil, e.NewValidationError(e.ErrFormat, f.field, "must be comma-separated digits")
		}
	}

	for _, f := range []struct {
		field string
		value *string
	}{
		{"unified_qualification", n.UnifiedQualification},
		{"unified_qualification_sub01", n.UnifiedQualificationSub01},
		{"unified_qualification_sub02", n.UnifiedQualificationSub02},
		{"unified_qualification_sub03", n.UnifiedQualificationSub03},
		{"unified_qualification_sub04", n.UnifiedQualificationSub04},
	} {
		if f.value != nil && !csvGradePattern.MatchString(*f.value) {
			return nil, e.NewValidationError(e.ErrFormat, f.field, "must be comma-separated A-D")
		}
	}

	if n.Prefecture != nil && digitsPattern.MatchString(*n.Prefecture) && len(*n.Prefecture) != 2 {
		return nil, e.NewValidationError(e.ErrFormat, "prefecture", "prefecture must be 2 digits when numeric")
	}
	if n.City != nil && digitsPattern.MatchString(*n.City) && len(*n.City) != 3 {
		return nil, e.NewValidationError(e.ErrFormat, "city", "city must be 3 digits when numeric")
	}

	if n.CorporateNumber != nil {
		if _, err := validation.ValidateCorporateNumber(*n.CorporateNumber); err != nil {
			return nil, err
		}
	}

	if n.City != nil && n.Prefecture == nil {
		return nil, e.NewValidationError(e.ErrConsistency, "city", "city requires prefecture")
	}

	page, limit := DefaultPage, DefaultLimit
	if n.Page != nil {
		page = *n.Page
	}
	if n.Limit != nil {
		limit = *n.Limit
	}
	if page < MinPage || page > MaxPage {
		return nil, e.NewValidationError(e.ErrRange, "page", fmt.Sprintf("must be between %d and %d", MinPage, MaxPage))
	}
	if limit < MinLimit || limit > MaxLimit {
		return nil, e.NewValidationError(e.ErrRange, "limit", fmt.Sprintf("must be between %d and %d", MinLimit, MaxLimit))
	}
	n.Page, n.Limit = &page, &limit

	return &n, nil
}

// PageOrDefault returns Page, or DefaultPage when unset.
func (q *SearchQuery) PageOrDefault() int {
	if q.Page == nil {
		return DefaultPage
	}
	return *q.Page
}

// LimitOrDefault returns Limit, or DefaultLimit when unset.
func (q *SearchQuery) LimitOrDefault() int {
	if q.Limit == nil {
		return DefaultLimit
	}
	return *q.Limit
}

// Values renders every provided filter as an upstream query parameter.
// Numeric bounds use the upstream's long key names; page and limit are
// always present.
func (q *SearchQuery) Values() url.Values {
	v := url.Values{}
	for _, f := range q.stringFilters() {
		if *f.value != nil && **f.value != "" {
			v.Set(f.param, **f.value)
		}
	}
	if q.ExistFlg != nil {
		v.Set("exist_flg", strconv.FormatBool(*q.ExistFlg))
	}
	for _, f := range q.rangeFilters() {
		if f.value != nil {
			v.Set(f.param, strconv.FormatInt(*f.value, 10))
		}
	}
	v.Set("page", strconv.Itoa(q.PageOrDefault()))
	v.Set("limit", strconv.Itoa(q.LimitOrDefault()))
	return v
}
