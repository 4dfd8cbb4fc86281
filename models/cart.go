package models

// CartItem is one line of a session cart: a product/size selection. Carts
// are not persisted; they live in the session store and are replaced whole
// on every mutation.
type CartItem struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size"`
}
