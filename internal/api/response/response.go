package response

import "github.com/gin-gonic/gin"

const (
	CodeSuccess = 0
)

const (
	ErrUnauthorized = 10001
	ErrTokenExpired = 10002
	ErrForbidden    = 10003
)

const (
	ErrCustomerNotFound = 20001
	ErrCustomerExists   = 20002
	ErrPasswordWrong    = 20003
)

const (
	ErrInsufficientCredits = 30001
)

const (
	ErrRewardsDisabled = 40001
	ErrAlreadyClaimed  = 40002
)

const (
	ErrReferralDisabled = 50001
	ErrInvalidCode      = 50002
	ErrSelfReferral     = 50003
	ErrAlreadyReferred  = 50004
	ErrNotNewCustomer   = 50005
)

const (
	ErrPromoNotFound     = 60001
	ErrPromoExpired      = 60002
	ErrPromoBelowMin     = 60003
	ErrPromoUsageLimit   = 60004
	ErrPromoAlreadyUsed  = 60005
	ErrPromoFirstBuyOnly = 60006
)

const (
	ErrOrderNotFound = 70001
)

const (
	ErrProductNotFound  = 80001
	ErrCategoryNotFound = 80002
	ErrEventNotFound    = 80003
)

const (
	ErrStoreMaintenance = 90001
	ErrInternal         = 99999
)

type Response struct {
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Paginated(c *gin.Context, data any, page, pageSize int, total int64) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
		Pagination: &Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func Fail(c *gin.Context, httpStatus, appCode int, message string) {
	c.JSON(httpStatus, Response{
		Code:    appCode,
		Message: message,
	})
}
