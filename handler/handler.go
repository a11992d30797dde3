package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warungpos/procure_backend/config"
	"github.com/warungpos/procure_backend/middlewares"
	"github.com/warungpos/procure_backend/models"
	"github.com/warungpos/procure_backend/utils"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	}
}

// RegisterRoutes wires every endpoint under /api/v1 behind the auth
// middleware.
func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", middlewares.AuthMiddleware())

	api.POST("/outlets", middlewares.RequireRole("admin"), createOutlet)
	api.GET("/outlets", listOutlets)
	api.GET("/outlets/:code", getOutlet)
	api.PATCH("/outlets/:code/active", middlewares.RequireRole("admin"), toggleActiveOutlet)

	api.POST("/suppliers", createSupplier)
	api.GET("/suppliers", listSuppliers)
	api.GET("/suppliers/:id", getSupplier)
	api.PUT("/suppliers/:id", updateSupplier)
	api.PATCH("/suppliers/:id/active", toggleActiveSupplier)

	api.POST("/items", createItem)
	api.GET("/items", listItems)
	api.GET("/items/:id", getItem)
	api.PUT("/items/:id", updateItem)
	api.PATCH("/items/:id/active", toggleActiveItem)

	api.POST("/accounts", createFinancialAccount)
	api.GET("/accounts", listFinancialAccounts)
	api.GET("/accounts/:id", getFinancialAccount)
	api.GET("/accounts/:id/transactions", listAccountTransactions)
	api.POST("/accounts/transactions", createAccountTransaction)

	api.GET("/inventory", listInventoryBalances)
	api.GET("/inventory/:itemId", getInventoryBalance)

	api.POST("/purchase-orders", createPurchaseOrder)
	api.GET("/purchase-orders", listPurchaseOrders)
	api.GET("/purchase-orders/:id", getPurchaseOrder)
	api.PUT("/purchase-orders/:id", updatePurchaseOrder)
	api.POST("/purchase-orders/:id/issue", issuePurchaseOrder)
	api.POST("/purchase-orders/:id/cancel", cancelPurchaseOrder)
	api.POST("/purchase-orders/:id/receive-remaining", receiveRemaining)

	api.POST("/goods-receipts", createGoodsReceipt)
	api.GET("/goods-receipts", listGoodsReceipts)
	api.GET("/goods-receipts/:id", getGoodsReceipt)

	api.POST("/invoices", generateInvoice)
	api.GET("/invoices", listInvoices)
	api.GET("/invoices/:id", getInvoice)
	api.POST("/invoices/:id/cancel", cancelInvoice)

	api.POST("/supplier-payments", createSupplierPayment)
	api.GET("/supplier-payments", listSupplierPayments)
	api.GET("/supplier-payments/:id", getSupplierPayment)

	api.POST("/stock-opnames", createStockOpname)
	api.GET("/stock-opnames", listStockOpnames)
	api.GET("/stock-opnames/:id", getStockOpname)

	api.POST("/internal-usages", createInternalUsage)
	api.GET("/internal-usages", listInternalUsages)
	api.GET("/internal-usages/:id", getInternalUsage)

	api.POST("/internal-returns", createInternalReturn)
	api.GET("/internal-returns", listInternalReturns)
	api.GET("/internal-returns/:id", getInternalReturn)
}

// respondError maps the models error taxonomy onto HTTP statuses. Unknown
// errors log with full context and return an opaque 500.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": validationErr.Error(),
			"field": validationErr.Field,
			"line":  validationErr.Line,
		})
		return
	}
	var fundsErr *models.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      fundsErr.Error(),
			"account_id": fundsErr.AccountId,
			"required":   fundsErr.Required,
			"available":  fundsErr.Available,
		})
		return
	}
	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
		return
	}
	var stateErr *models.StateError
	if errors.As(err, &stateErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  stateErr.Error(),
			"entity": stateErr.Entity,
			"status": stateErr.Status,
		})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	config.LogError(config.GetLogger(), "handler", c.FullPath(), "request failed", logrus.Fields{
		"correlation_id": correlationId,
		"method":         c.Request.Method,
	}, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
