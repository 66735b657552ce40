package models

import "encoding/json"

// The detail schema below documents the upstream shape only. Every field is
// optional and unknown fields are ignored when decoding.

type APIErrorItem struct {
	Item    *string `json:"item,omitempty"`
	Message *string `json:"message,omitempty"`
}

type CertificationInfo struct {
	Category              *string `json:"category,omitempty"`
	DateOfApproval        *string `json:"date_of_approval,omitempty"`
	EnterpriseScale       *string `json:"enterprise_scale,omitempty"`
	ExpirationDate        *string `json:"expiration_date,omitempty"`
	GovernmentDepartments *string `json:"government_departments,omitempty"`
	Target                *string `json:"target,omitempty"`
	Title                 *string `json:"title,omitempty"`
}

type CommendationInfo struct {
	Category              *string `json:"category,omitempty"`
	DateOfCommendation    *string `json:"date_of_commendation,omitempty"`
	GovernmentDepartments *string `json:"government_departments,omitempty"`
	Target                *string `json:"target,omitempty"`
	Title                 *string `json:"title,omitempty"`
}

type MajorShareholder struct {
	NameMajorShareholders *string  `json:"name_major_shareholders,omitempty"`
	ShareholdingRatio     *float64 `json:"shareholding_ratio,omitempty"`
}

type ManagementIndex struct {
	CapitalStock                 *int64  `json:"capital_stock_summary_of_business_results,omitempty"`
	CapitalStockUnitRef          *string `json:"capital_stock_summary_of_business_results_unit_ref,omitempty"`
	GrossOperatingRevenue        *int64  `json:"gross_operating_revenue_summary_of_business_results,omitempty"`
	GrossOperatingRevenueUnitRef *string `json:"gross_operating_revenue_summary_of_business_results_unit_ref,omitempty"`
	NetAssets                    *int64  `json:"net_assets_summary_of_business_results,omitempty"`
	NetAssetsUnitRef             *string `json:"net_assets_summary_of_business_results_unit_ref,omitempty"`
	NetIncomeLoss                *int64  `json:"net_income_loss_summary_of_business_results,omitempty"`
	NetIncomeLossUnitRef         *string `json:"net_income_loss_summary_of_business_results_unit_ref,omitempty"`
	NetPremiumsWritten           *int64  `json:"net_premiums_written_summary_of_business_results_ins,omitempty"`
	NetPremiumsWrittenUnitRef    *string `json:"net_premiums_written_summary_of_business_results_ins_unit_ref,omitempty"`
	NetSales                     *int64  `json:"net_sales_summary_of_business_results,omitempty"`
	NetSalesUnitRef              *string `json:"net_sales_summary_of_business_results_unit_ref,omitempty"`
	NumberOfEmployees            *int64  `json:"number_of_employees,omitempty"`
	NumberOfEmployeesUnitRef     *string `json:"number_of_employees_unit_ref,omitempty"`
	OperatingRevenue1            *int64  `json:"operating_revenue1_summary_of_business_results,omitempty"`
	OperatingRevenue1UnitRef     *string `json:"operating_revenue1_summary_of_business_results_unit_ref,omitempty"`
	OperatingRevenue2            *int64  `json:"operating_revenue2_summary_of_business_results,omitempty"`
	OperatingRevenue2UnitRef     *string `json:"operating_revenue2_summary_of_business_results_unit_ref,omitempty"`
	OrdinaryIncomeLoss           *int64  `json:"ordinary_income_loss_summary_of_business_results,omitempty"`
	OrdinaryIncomeLossUnitRef    *string `json:"ordinary_income_loss_summary_of_business_results_unit_ref,omitempty"`
	OrdinaryIncome               *int64  `json:"ordinary_income_summary_of_business_results,omitempty"`
	OrdinaryIncomeUnitRef        *string `json:"ordinary_income_summary_of_business_results_unit_ref,omitempty"`
	Period                       *string `json:"period,omitempty"`
	TotalAssets                  *int64  `json:"total_assets_summary_of_business_results,omitempty"`
	TotalAssetsUnitRef           *string `json:"total_assets_summary_of_business_results_unit_ref,omitempty"`
}

type Finance struct {
	AccountingStandards *string            `json:"accounting_standards,omitempty"`
	FiscalYearCoverPage *string            `json:"fiscal_year_cover_page,omitempty"`
	MajorShareholders   []MajorShareholder `json:"major_shareholders,omitempty"`
	ManagementIndex     []ManagementIndex  `json:"management_index,omitempty"`
}

type PatentInfo struct {
	ApplicationDate   *string             `json:"application_date,omitempty"`
	ApplicationNumber *string             `json:"application_number,omitempty"`
	Classifications   []map[string]string `json:"classifications,omitempty"`
	PatentType        *string             `json:"patent_type,omitempty"`
	Title             *string             `json:"title,omitempty"`
}

type ProcurementInfo struct {
	Amount                *int64   `json:"amount,omitempty"`
	DateOfOrder           *string  `json:"date_of_order,omitempty"`
	GovernmentDepartments *string  `json:"government_departments,omitempty"`
	JointSignatures       []string `json:"joint_signatures,omitempty"`
	Title                 *string  `json:"title,omitempty"`
}

type SubsidyInfo struct {
	Amount                *string  `json:"amount,omitempty"`
	DateOfApproval        *string  `json:"date_of_approval,omitempty"`
	GovernmentDepartments *string  `json:"government_departments,omitempty"`
	JointSignatures       []string `json:"joint_signatures,omitempty"`
	Note                  *string  `json:"note,omitempty"`
	SubsidyResource       *string  `json:"subsidy_resource,omitempty"`
	Target                *string  `json:"target,omitempty"`
	Title                 *string  `json:"title,omitempty"`
}

type WomenActivityInfos struct {
	FemaleShareOfManager        *int64   `json:"female_share_of_manager,omitempty"`
	FemaleShareOfOfficers       *int64   `json:"female_share_of_officers,omitempty"`
	FemaleWorkersProportion     *float64 `json:"female_workers_proportion,omitempty"`
	FemaleWorkersProportionType *string  `json:"female_workers_proportion_type,omitempty"`
	GenderTotalOfManager        *int64   `json:"gender_total_of_manager,omitempty"`
	GenderTotalOfOfficers       *int64   `json:"gender_total_of_officers,omitempty"`
}

type CompatibilityOfChildcareAndWork struct {
	MaternityLeaveAcquisitionNum *int64 `json:"maternity_leave_acquisition_num,omitempty"`
	NumberOfMaternityLeave       *int64 `json:"number_of_maternity_leave,omitempty"`
	NumberOfPaternityLeave       *int64 `json:"number_of_paternity_leave,omitempty"`
	PaternityLeaveAcquisitionNum *int64 `json:"paternity_leave_acquisition_num,omitempty"`
}

type WorkplaceBaseInfos struct {
	AverageAge                             *float64 `json:"average_age,omitempty"`
	AverageContinuousServiceYears          *float64 `json:"average_continuous_service_years,omitempty"`
	AverageContinuousServiceYearsFemale    *float64 `json:"average_continuous_service_years_Female,omitempty"`
	AverageContinuousServiceYearsMale      *float64 `json:"average_continuous_service_years_Male,omitempty"`
	AverageContinuousServiceYearsType      *string  `json:"average_continuous_service_years_type,omitempty"`
	MonthAveragePredeterminedOvertimeHours *float64 `json:"month_average_predetermined_overtime_hours,omitempty"`
}

type WorkplaceInfo struct {
	BaseInfos                       *WorkplaceBaseInfos              `json:"base_infos,omitempty"`
	CompatibilityOfChildcareAndWork *CompatibilityOfChildcareAndWork `json:"compatibility_of_childcare_and_work,omitempty"`
	WomenActivityInfos              *WomenActivityInfos              `json:"women_activity_infos,omitempty"`
}

// HojinInfo is one company record of a detail response.
type HojinInfo struct {
	BusinessItems          []string            `json:"business_items,omitempty"`
	BusinessSummary        *string             `json:"business_summary,omitempty"`
	CapitalStock           *int64              `json:"capital_stock,omitempty"`
	Certification          []CertificationInfo `json:"certification,omitempty"`
	CloseCause             *string             `json:"close_cause,omitempty"`
	CloseDate              *string             `json:"close_date,omitempty"`
	Commendation           []CommendationInfo  `json:"commendation,omitempty"`
	CompanySizeFemale      *int64              `json:"company_size_female,omitempty"`
	CompanySizeMale        *int64              `json:"company_size_male,omitempty"`
	CompanyURL             *string             `json:"company_url,omitempty"`
	CorporateNumber        *string             `json:"corporate_number,omitempty"`
	DateOfEstablishment    *string             `json:"date_of_establishment,omitempty"`
	EmployeeNumber         *int64              `json:"employee_number,omitempty"`
	Finance                *Finance            `json:"finance,omitempty"`
	FoundingYear           *int64              `json:"founding_year,omitempty"`
	Kana                   *string             `json:"kana,omitempty"`
	Location               *string             `json:"location,omitempty"`
	Name                   *string             `json:"name,omitempty"`
	NameEn                 *string             `json:"name_en,omitempty"`
	NumberOfActivity       *string             `json:"number_of_activity,omitempty"`
	Patent                 []PatentInfo        `json:"patent,omitempty"`
	PostalCode             *string             `json:"postal_code,omitempty"`
	Procurement            []ProcurementInfo   `json:"procurement,omitempty"`
	QualificationGrade     *string             `json:"qualification_grade,omitempty"`
	RepresentativeName     *string             `json:"representative_name,omitempty"`
	RepresentativePosition *string             `json:"representative_position,omitempty"`
	Status                 *string             `json:"status,omitempty"`
	Subsidy                []SubsidyInfo       `json:"subsidy,omitempty"`
	UpdateDate             *string             `json:"update_date,omitempty"`
	WorkplaceInfo          *WorkplaceInfo      `json:"workplace_info,omitempty"`
}

// HojinInfoResponse is the envelope of every detail lookup.
type HojinInfoResponse struct {
	Errors     []APIErrorItem `json:"errors,omitempty"`
	HojinInfos []HojinInfo    `json:"hojin-infos,omitempty"`
	ID         *string        `json:"id,omitempty"`
	Message    *string        `json:"message,omitempty"`
}

// DetailResult is what a detail lookup returns: the decoded envelope when
// upstream answered with a JSON object, otherwise the raw upstream value.
type DetailResult struct {
	Info *HojinInfoResponse
	Raw  any
}

func (d *DetailResult) MarshalJSON() ([]byte, error) {
	if d.Info != nil {
		return json.Marshal(d.Info)
	}
	return json.Marshal(d.Raw)
}
