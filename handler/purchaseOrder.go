package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/warungpos/procure_backend/models"
)

func createPurchaseOrder(c *gin.Context) {
	var input models.NewPurchaseOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func updatePurchaseOrder(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input models.NewPurchaseOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := models.UpdatePurchaseOrder(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func issuePurchaseOrder(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.IssuePurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func cancelPurchaseOrder(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.CancelPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func getPurchaseOrder(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func listPurchaseOrders(c *gin.Context) {
	var status *models.PurchaseOrderStatus
	if q := c.Query("status"); q != "" {
		s := models.PurchaseOrderStatus(q)
		status = &s
	}
	var supplierId *int
	if q := c.Query("supplier_id"); q != "" {
		id, err := strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier_id"})
			return
		}
		supplierId = &id
	}
	orders, err := models.GetPurchaseOrders(c.Request.Context(), status, supplierId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type receiveRemainingInput struct {
	Note string `json:"note"`
}

func receiveRemaining(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input receiveRemainingInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
	}
	receipt, err := models.ReceiveRemaining(c.Request.Context(), id, input.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	if receipt == nil {
		c.JSON(http.StatusOK, gin.H{"message": "nothing left to receive"})
		return
	}
	c.JSON(http.StatusCreated, receipt)
}
