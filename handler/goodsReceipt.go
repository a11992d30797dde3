package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/warungpos/procure_backend/models"
)

func createGoodsReceipt(c *gin.Context) {
	var input models.NewGoodsReceipt
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	receipt, err := models.CreateGoodsReceipt(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func getGoodsReceipt(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	receipt, err := models.GetGoodsReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func listGoodsReceipts(c *gin.Context) {
	var purchaseOrderId *int
	if q := c.Query("purchase_order_id"); q != "" {
		id, err := strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase_order_id"})
			return
		}
		purchaseOrderId = &id
	}
	receipts, err := models.GetGoodsReceipts(c.Request.Context(), purchaseOrderId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipts)
}
