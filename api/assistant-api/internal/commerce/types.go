// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_commerce

// Order carries the subset of Shopify order fields the assistant is allowed
// to read back to a caller. Decoding into this struct is the field filter;
// anything Shopify sends beyond these keys is dropped.
type Order struct {
	CustomerID          int64            `json:"customer_id,omitempty"`
	Id                  int64            `json:"id"`
	OrderNumber         int64            `json:"order_number"`
	CreatedAt           string           `json:"created_at"`
	UpdatedAt           string           `json:"updated_at"`
	ProcessedAt         string           `json:"processed_at"`
	FinancialStatus     string           `json:"financial_status"`
	FulfillmentStatus   string           `json:"fulfillment_status"`
	TotalPrice          string           `json:"total_price"`
	SubtotalPrice       string           `json:"subtotal_price"`
	TotalTax            string           `json:"total_tax"`
	Currency            string           `json:"currency"`
	Email               string           `json:"email"`
	Phone               string           `json:"phone"`
	LineItems           []LineItem       `json:"line_items"`
	ShippingAddress     *ShippingAddress `json:"shipping_address"`
	Fulfillments        []Fulfillment    `json:"fulfillments"`
	PaymentGatewayNames []string         `json:"payment_gateway_names"`
	TotalDiscounts      string           `json:"total_discounts"`
	TotalWeight         int64            `json:"total_weight"`
	Tags                string           `json:"tags"`
}

type LineItem struct {
	Id                int64  `json:"id"`
	Title             string `json:"title"`
	VariantTitle      string `json:"variant_title"`
	Quantity          int64  `json:"quantity"`
	Price             string `json:"price"`
	Sku               string `json:"sku"`
	FulfillmentStatus string `json:"fulfillment_status"`
}

type ShippingAddress struct {
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Address1     string `json:"address1,omitempty"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"province_code,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type Fulfillment struct {
	Id              int64  `json:"id"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	TrackingCompany string `json:"tracking_company"`
	TrackingNumber  string `json:"tracking_number"`
	TrackingUrl     string `json:"tracking_url"`
	ShipmentStatus  string `json:"shipment_status"`
}

type Customer struct {
	Id          int64  `json:"id"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	OrdersCount int64  `json:"orders_count"`
	TotalSpent  string `json:"total_spent"`
}

type Product struct {
	Id          int64            `json:"id"`
	Title       string           `json:"title"`
	BodyHtml    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Handle      string           `json:"handle"`
	Status      string           `json:"status"`
	Tags        string           `json:"tags"`
	Variants    []ProductVariant `json:"variants"`
}

type ProductVariant struct {
	Id                int64  `json:"id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	Sku               string `json:"sku"`
	InventoryQuantity int64  `json:"inventory_quantity"`
}

// Price returns the first variant's price, which is what callers mean when
// they ask how much a product costs.
func (p *Product) Price() string {
	if len(p.Variants) == 0 {
		return ""
	}
	return p.Variants[0].Price
}

type Shop struct {
	Id              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Phone           string `json:"phone"`
	Currency        string `json:"currency"`
	CountryName     string `json:"country_name"`
}

// OrderPatch is the set of order fields a caller may change over the phone.
// Empty fields are left untouched on the order.
type OrderPatch struct {
	Email        string `json:"email,omitempty" mapstructure:"email"`
	Phone        string `json:"phone,omitempty" mapstructure:"phone"`
	Address1     string `json:"address1,omitempty" mapstructure:"address1"`
	Address2     string `json:"address2,omitempty" mapstructure:"address2"`
	City         string `json:"city,omitempty" mapstructure:"city"`
	LastName     string `json:"last_name,omitempty" mapstructure:"last_name"`
	Country      string `json:"country,omitempty" mapstructure:"country"`
	ProvinceCode string `json:"province_code,omitempty" mapstructure:"province_code"`
	Zip          string `json:"zip,omitempty" mapstructure:"zip"`
}

func (p OrderPatch) IsEmpty() bool {
	return p.Email == "" && p.Phone == "" && p.Address1 == "" && p.Address2 == "" &&
		p.City == "" && p.LastName == "" && p.Country == "" && p.ProvinceCode == "" && p.Zip == ""
}
