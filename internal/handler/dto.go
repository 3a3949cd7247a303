package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
	"github.com/xenking/choco-orders/internal/domain/order"
	"github.com/xenking/choco-orders/internal/domain/product"
)

type itemRequest struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

type createOrderRequest struct {
	Items    []itemRequest   `json:"items"`
	OfferID  *int64          `json:"offerId"`
	Shipping decimal.Decimal `json:"shipping"`
	Meta     *metaRequest    `json:"meta"`
}

// metaRequest is the client-editable part of order metadata. Stored fields
// such as version and point deltas are ignored on input.
type metaRequest struct {
	Promo   string         `json:"promo"`
	Payment string         `json:"payment"`
	Contact contactRequest `json:"contact"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Notes   string `json:"notes"`
}

func (m metaRequest) toDomain() order.Meta {
	return order.Meta{
		Promo:   m.Promo,
		Payment: m.Payment,
		Contact: order.Contact(m.Contact),
	}
}

func (req createOrderRequest) toDomain(userID *int64) order.CreateOrderRequest {
	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{ProductID: it.ID, Name: it.Name, Price: it.Price, Qty: it.Qty}
	}
	out := order.CreateOrderRequest{
		UserID:   userID,
		Items:    items,
		OfferID:  req.OfferID,
		Shipping: req.Shipping,
	}
	if req.Meta != nil {
		out.Meta = req.Meta.toDomain()
	}
	return out
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type itemResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type orderResponse struct {
	ID       int64          `json:"id"`
	Date     time.Time      `json:"date"`
	Status   string         `json:"status"`
	Subtotal float64        `json:"subtotal"`
	Discount float64        `json:"discount"`
	Shipping float64        `json:"shipping"`
	Total    float64        `json:"total"`
	Items    []itemResponse `json:"items"`
	Meta     *order.Meta    `json:"meta,omitempty"`
	User     *userResponse  `json:"user,omitempty"`
}

func newOrderResponse(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemResponse{ID: it.ProductID, Name: it.Name, Price: it.Price.InexactFloat64(), Qty: it.Qty}
	}
	resp := orderResponse{
		ID:       o.ID,
		Date:     o.CreatedAt.UTC(),
		Status:   string(o.Status),
		Subtotal: o.Subtotal.InexactFloat64(),
		Discount: o.Discount.InexactFloat64(),
		Shipping: o.Shipping.InexactFloat64(),
		Total:    o.Total.InexactFloat64(),
		Items:    items,
		Meta:     o.Meta,
	}
	if o.User != nil {
		resp.User = &userResponse{ID: o.User.ID, Name: o.User.Name, Email: o.User.Email}
	}
	return resp
}

func newOrderListResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = newOrderResponse(&orders[i])
	}
	return out
}

type balanceResponse struct {
	UserID int64 `json:"userId"`
	Points int64 `json:"points"`
}

type entryResponse struct {
	OrderID      int64     `json:"orderId"`
	Delta        int64     `json:"delta"`
	Reason       string    `json:"reason"`
	BalanceAfter int64     `json:"balanceAfter"`
	Date         time.Time `json:"date"`
}

func newHistoryResponse(entries []loyalty.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = entryResponse{
			OrderID:      e.OrderID,
			Delta:        e.Delta,
			Reason:       string(e.Reason),
			BalanceAfter: e.BalanceAfter,
			Date:         e.CreatedAt.UTC(),
		}
	}
	return out
}

type offerResponse struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Kind       string  `json:"kind"`
	Value      float64 `json:"value"`
	PointsCost int64   `json:"pointsCost"`
	Label      string  `json:"label"`
}

func newOfferResponse(o offer.Offer) offerResponse {
	return offerResponse{
		ID:         o.ID,
		Code:       o.Code,
		Title:      o.Title,
		Kind:       string(o.Kind),
		Value:      o.Value.InexactFloat64(),
		PointsCost: o.PointsCost,
		Label:      o.Label(),
	}
}

type productResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Weight      string  `json:"weight"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
}

func newProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Weight:      p.Weight,
		Image:       p.Image,
		Category:    p.Category,
	}
}
