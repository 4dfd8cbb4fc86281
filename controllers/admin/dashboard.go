package adminControllers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/models"
)

const lowStockThreshold = 5

type productSales struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	OrderCount  int     `json:"order_count"`
	Revenue     float64 `json:"revenue"`
}

type wishlistedProduct struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Count       int    `json:"count"`
}

type dashboardStats struct {
	TotalRevenue      float64                        `json:"total_revenue"`
	TotalOrders       int64                          `json:"total_orders"`
	OrdersByStatus    map[models.PaymentStatus]int64 `json:"orders_by_payment_status"`
	RevenueByMethod   map[models.PaymentMethod]float64 `json:"revenue_by_method"`
	DistinctCustomers int64                          `json:"distinct_customers"`
	TotalProducts     int64                          `json:"total_products"`
	LowStock          []models.Product               `json:"low_stock"`
	OutOfStock        []models.Product               `json:"out_of_stock"`
	TopProducts       []productSales                 `json:"top_products"`
	WeekRevenue       float64                        `json:"week_revenue"`
	WeekOrders        int64                          `json:"week_orders"`
	MostWishlisted    []wishlistedProduct            `json:"most_wishlisted"`
}

// orderAmount is the order's stored amount, falling back to the current
// product price for rows written before amounts were recorded.
func orderAmount(order models.Order) float64 {
	if order.Amount > 0 {
		return order.Amount
	}
	if order.Product != nil {
		return order.Product.Price
	}
	return 0
}

// GetDashboard aggregates the back-office analytics. Limited admins only
// see orders and stock for products they created.
func GetDashboard(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		orderQuery := db.Model(&models.Order{}).Preload("Product")
		if !admin.IsSuperAdmin() {
			orderQuery = orderQuery.
				Joins("JOIN products ON products.id = orders.product_id").
				Where("products.created_by = ?", admin.ID)
		}

		var orders []models.Order
		if err := orderQuery.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		stats := dashboardStats{
			OrdersByStatus:  make(map[models.PaymentStatus]int64),
			RevenueByMethod: make(map[models.PaymentMethod]float64),
			TotalOrders:     int64(len(orders)),
		}

		weekAgo := time.Now().AddDate(0, 0, -7)
		customers := make(map[uint]struct{})
		sales := make(map[uint]*productSales)

		for _, order := range orders {
			stats.OrdersByStatus[order.PaymentStatus]++
			customers[order.UserID] = struct{}{}

			if order.PaymentStatus != models.PaymentStatusCompleted {
				continue
			}
			amount := orderAmount(order)
			stats.TotalRevenue += amount
			stats.RevenueByMethod[order.PaymentMethod] += amount

			if order.CreatedAt.After(weekAgo) {
				stats.WeekRevenue += amount
				stats.WeekOrders++
			}

			if order.ProductID != nil && order.Product != nil {
				entry, found := sales[*order.ProductID]
				if !found {
					entry = &productSales{ProductID: *order.ProductID, ProductName: order.Product.Name}
					sales[*order.ProductID] = entry
				}
				entry.OrderCount++
				entry.Revenue += amount
			}
		}
		stats.DistinctCustomers = int64(len(customers))

		for _, entry := range sales {
			stats.TopProducts = append(stats.TopProducts, *entry)
		}
		sort.Slice(stats.TopProducts, func(i, j int) bool {
			return stats.TopProducts[i].OrderCount > stats.TopProducts[j].OrderCount
		})
		if len(stats.TopProducts) > 5 {
			stats.TopProducts = stats.TopProducts[:5]
		}

		var products []models.Product
		if err := scopeProducts(db, admin).Preload("Sizes").Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		stats.TotalProducts = int64(len(products))
		for _, p := range products {
			total := p.TotalStock()
			switch {
			case total == 0:
				stats.OutOfStock = append(stats.OutOfStock, p)
			case total < lowStockThreshold:
				stats.LowStock = append(stats.LowStock, p)
			}
		}

		var wishlisted []wishlistedProduct
		wishQuery := db.Model(&models.Wishlist{}).
			Select("wishlists.product_id, products.name AS product_name, COUNT(*) AS count").
			Joins("JOIN products ON products.id = wishlists.product_id").
			Group("wishlists.product_id, products.name").
			Order("count DESC").
			Limit(5)
		if !admin.IsSuperAdmin() {
			wishQuery = wishQuery.Where("products.created_by = ?", admin.ID)
		}
		if err := wishQuery.Scan(&wishlisted).Error; err == nil {
			stats.MostWishlisted = wishlisted
		}

		c.JSON(http.StatusOK, stats)
	}
}
