package service

import (
	"go.uber.org/zap"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/listing"
	"mailadmin/backend/internal/storage"
)

// quotaSortKeys 配额列表允许的排序键
var quotaSortKeys = []string{"address", "quota", "quota_value__bytes", "quota_usage"}

// QuotaService 配额列表服务
type QuotaService struct {
	store    storage.Store
	pageSize int
	log      *zap.Logger
}

// NewQuotaService 创建配额服务
func NewQuotaService(store storage.Store, pageSize int, log *zap.Logger) *QuotaService {
	if pageSize <= 0 {
		pageSize = listing.DefaultPageSize
	}
	return &QuotaService{
		store:    store,
		pageSize: pageSize,
		log:      log,
	}
}

// ListQuotasInput 配额列表输入
type ListQuotasInput struct {
	SearchQuery string
	SortOrder   string // 形如 "address" 或 "-quota_usage"
	Page        int
}

// ListQuotasOutput 配额列表输出
type ListQuotasOutput struct {
	Quotas []domain.QuotaListing
	Page   *listing.Page
}

// List 返回调用者管理范围内的配额列表。
// 配额为 0 的邮箱（无限配额）始终排除。
func (s *QuotaService) List(caller *domain.Account, input ListQuotasInput) (*ListQuotasOutput, error) {
	sortKey, desc, err := listing.SortOrder(input.SortOrder, "address", quotaSortKeys)
	if err != nil {
		return nil, err
	}

	domainIDs, err := visibleDomainIDs(s.store, caller)
	if err != nil {
		return nil, err
	}
	if domainIDs != nil && len(domainIDs) == 0 {
		return &ListQuotasOutput{}, nil
	}

	quotas, err := s.store.ListQuotas(domainIDs, input.SearchQuery, sortKey, desc)
	if err != nil {
		return nil, err
	}

	page := listing.Paginate(len(quotas), input.Page, s.pageSize)
	if page == nil {
		return &ListQuotasOutput{}, nil
	}

	return &ListQuotasOutput{
		Quotas: quotas[page.Start:page.End],
		Page:   page,
	}, nil
}
