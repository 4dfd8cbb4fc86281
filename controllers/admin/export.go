package adminControllers

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// ExportOrdersCSV streams every order as a CSV download. The amount
// column falls back to the product's current price when the order
// predates amount recording.
func ExportOrdersCSV(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		query := db.Model(&models.Order{}).Preload("User").Preload("Product").Order("created_at DESC")
		if !admin.IsSuperAdmin() {
			query = query.
				Joins("JOIN products ON products.id = orders.product_id").
				Where("products.created_by = ?", admin.ID)
		}

		var orders []models.Order
		if err := query.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=orders.csv")
		c.Header("Content-Type", "text/csv")

		w := csv.NewWriter(c.Writer)
		defer w.Flush()

		w.Write([]string{
			"Order ID", "Customer Name", "Customer Email", "Phone",
			"Product", "Size", "Amount", "Payment Method", "Payment Status",
			"Payment Reference", "Order Status", "Created At", "Updated At",
		})

		for _, order := range orders {
			productName := "N/A"
			if order.Product != nil {
				productName = order.Product.Name
			}
			w.Write([]string{
				strconv.FormatUint(uint64(order.ID), 10),
				order.User.Name,
				order.User.Email,
				order.PhoneNumber,
				productName,
				order.Size,
				strconv.FormatFloat(orderAmount(order), 'f', 2, 64),
				string(order.PaymentMethod),
				string(order.PaymentStatus),
				order.PaymentReference,
				string(order.Status),
				order.CreatedAt.Format(timestampLayout),
				order.UpdatedAt.Format(timestampLayout),
			})
		}
	}
}

// ExportProductsCSV streams the product catalog with per-size stock
// flattened to one "size:qty" list column.
func ExportProductsCSV(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		var products []models.Product
		if err := scopeProducts(db, admin).Preload("Sizes").Order("id").Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=products.csv")
		c.Header("Content-Type", "text/csv")

		w := csv.NewWriter(c.Writer)
		defer w.Flush()

		w.Write([]string{"ID", "Name", "Price", "Category", "Total Stock", "Sizes", "Image URL", "Created At"})
		for _, p := range products {
			w.Write([]string{
				strconv.FormatUint(uint64(p.ID), 10),
				p.Name,
				strconv.FormatFloat(p.Price, 'f', 2, 64),
				p.Category,
				strconv.Itoa(p.TotalStock()),
				formatSizes(p.Sizes),
				p.ImageURL,
				p.CreatedAt.Format(timestampLayout),
			})
		}
	}
}

func formatSizes(sizes []models.SizeStock) string {
	out := ""
	for i, s := range sizes {
		if i > 0 {
			out += ","
		}
		out += s.Size + ":" + strconv.Itoa(s.Quantity)
	}
	return out
}

// ExportProductsExcel writes the catalog as an xlsx workbook.
func ExportProductsExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		var products []models.Product
		if err := scopeProducts(db, admin).Preload("Sizes").Order("id").Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Products")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		headers := []string{
			"ID", "Name", "Price", "Description", "Category",
			"Total Stock", "Sizes", "Image URL", "CreatedAt", "UpdatedAt",
		}
		headerRow := sheet.AddRow()
		for _, h := range headers {
			headerRow.AddCell().SetValue(h)
		}

		for _, p := range products {
			row := sheet.AddRow()
			row.AddCell().SetValue(p.ID)
			row.AddCell().SetValue(p.Name)
			row.AddCell().SetValue(p.Price)
			row.AddCell().SetValue(p.Description)
			row.AddCell().SetValue(p.Category)
			row.AddCell().SetValue(p.TotalStock())
			row.AddCell().SetValue(formatSizes(p.Sizes))
			row.AddCell().SetValue(p.ImageURL)
			row.AddCell().SetValue(p.CreatedAt.Format(timestampLayout))
			row.AddCell().SetValue(p.UpdatedAt.Format(timestampLayout))
		}

		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
