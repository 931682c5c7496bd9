package portal

import (
	portalerrors "yogaportal/internal/portal/errors"
	"yogaportal/pkg/model"
	"yogaportal/pkg/sanitizer"
)

// AddToCart appends item, or raises the quantity of the line with the same
// ID. A zero quantity counts as one.
func (p *Portal) AddToCart(item model.CartItem) error {
	item.ID = sanitizer.ID(item.ID)
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if err := p.validator.ValidateCartItem(&item); err != nil {
		p.log.Warn("Rejected cart item", "id", item.ID, "error", err)
		return err
	}

	p.mu.Lock()
	idx := p.indexLocked(item.ID)
	merged := idx >= 0
	if merged {
		quantity := p.cart[idx].Quantity + item.Quantity
		if err := p.validator.ValidateQuantity(quantity); err != nil {
			p.mu.Unlock()
			p.log.Warn("Rejected cart quantity", "id", item.ID, "quantity", quantity, "error", err)
			return err
		}
		p.cart[idx].Quantity = quantity
	} else {
		p.cart = append(p.cart, cloneItem(item))
	}
	p.mu.Unlock()

	p.log.Debug("Cart item added", "id", item.ID, "quantity", item.Quantity, "merged", merged)
	p.changed()
	return nil
}

func (p *Portal) RemoveFromCart(id string) error {
	p.mu.Lock()
	idx := p.indexLocked(id)
	if idx < 0 {
		p.mu.Unlock()
		return portalerrors.ErrNotInCart
	}
	p.cart = append(p.cart[:idx], p.cart[idx+1:]...)
	p.mu.Unlock()

	p.changed()
	return nil
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (p *Portal) UpdateQuantity(id string, quantity int) error {
	if quantity <= 0 {
		return p.RemoveFromCart(id)
	}
	if err := p.validator.ValidateQuantity(quantity); err != nil {
		return err
	}

	p.mu.Lock()
	idx := p.indexLocked(id)
	if idx < 0 {
		p.mu.Unlock()
		return portalerrors.ErrNotInCart
	}
	p.cart[idx].Quantity = quantity
	p.mu.Unlock()

	p.changed()
	return nil
}

func (p *Portal) ClearCart() {
	p.mu.Lock()
	p.cart = nil
	p.mu.Unlock()

	p.changed()
}

// Cart returns the lines in insertion order.
func (p *Portal) Cart() []model.CartItem {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cartLocked()
}

func (p *Portal) CartTotal() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cartTotal(p.cart)
}

func (p *Portal) CartCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cartCount(p.cart)
}

func (p *Portal) indexLocked(id string) int {
	id = sanitizer.ID(id)
	for i := range p.cart {
		if p.cart[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Portal) cartLocked() []model.CartItem {
	out := make([]model.CartItem, len(p.cart))
	for i, item := range p.cart {
		out[i] = cloneItem(item)
	}
	return out
}

func cloneItem(item model.CartItem) model.CartItem {
	if item.Metadata != nil {
		md := make(map[string]any, len(item.Metadata))
		for k, v := range item.Metadata {
			md[k] = v
		}
		item.Metadata = md
	}
	return item
}

// cartTotal is the exact sum of the line subtotals. Rounding is left to
// whoever renders it.
func cartTotal(items []model.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

func cartCount(items []model.CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
