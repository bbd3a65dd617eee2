package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"storefront_back_end/internal/models"
)

var orderConfirmationTmpl = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Order confirmation</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Thank you for your order</h2>
		<p>Your payment was received and order <strong>{{.ID}}</strong> is confirmed.</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Product</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantity</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Unit price</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Items}}
				<tr>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Name}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Quantity}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.UnitPrice.StringFixed 2}} {{$.Currency}}</td>
				</tr>
			{{- end}}
			</tbody>
		</table>
		<p style="font-size: 18px;"><strong>Total: {{.Total.StringFixed 2}} {{.Currency}}</strong></p>
	</div>
</body>
</html>`))

var stockAlertTmpl = template.Must(template.New("stock").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif;">
	<h2 style="color: #c0392b;">Stock could not be updated</h2>
	<p>Order <strong>{{.OrderID}}</strong> is paid but its stock change failed.</p>
	<p>Reason: {{.Reason}}</p>
	<ul>
	{{- range .Lines}}
		<li>{{.ProductID}} × {{.Quantity}}</li>
	{{- end}}
	</ul>
</body>
</html>`))

// StockAlert describes a paid order whose stock change needs a human.
type StockAlert struct {
	OrderID string
	Reason  string
	Lines   []models.StockLine
}

func OrderConfirmationHTML(order *models.Order) (string, error) {
	var buf bytes.Buffer
	data := struct {
		*models.Order
		Currency string
	}{order, strings.ToUpper(order.Currency)}
	if err := orderConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render order confirmation: %w", err)
	}
	return buf.String(), nil
}

func StockAlertHTML(alert StockAlert) (string, error) {
	var buf bytes.Buffer
	if err := stockAlertTmpl.Execute(&buf, alert); err != nil {
		return "", fmt.Errorf("render stock alert: %w", err)
	}
	return buf.String(), nil
}
