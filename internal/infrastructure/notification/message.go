package notification

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	notifdomain "github.com/storefront/backend/internal/domain/notification"
)

// Message is a rendered order-status email
type Message struct {
	Subject string
	HTML    string
}

type detailRow struct {
	Label  string
	Value  string
	Accent bool
}

type messageData struct {
	Title       string
	HeaderColor string
	AccentColor string
	Tagline     string
	Customer    string
	Intro       []string
	Section     string
	Details     []detailRow
	Outro       []string
}

// All order-status emails share one layout; the per-status differences are
// colors, copy, and which detail rows appear.
var layoutTmpl = template.Must(template.New("order-email").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: {{.HeaderColor}}; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
    .order-details { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; }
    .accent { font-weight: bold; font-size: 18px; color: {{.AccentColor}}; }
    .footer { text-align: center; margin-top: 30px; color: #6b7280; }
  </style>
</head>
<body>
  <div class="header">
    <h1>{{.Title}}</h1>
    {{- if .Tagline}}
    <p>{{.Tagline}}</p>
    {{- end}}
  </div>

  <div class="content">
    <p>Hi {{.Customer}},</p>
    {{- range .Intro}}
    <p>{{.}}</p>
    {{- end}}

    <div class="order-details">
      <h3>{{.Section}}</h3>
      {{- range .Details}}
      <p><strong>{{.Label}}:</strong> {{if .Accent}}<span class="accent">{{.Value}}</span>{{else}}{{.Value}}{{end}}</p>
      {{- end}}
    </div>
    {{- range .Outro}}
    <p>{{.}}</p>
    {{- end}}
  </div>

  <div class="footer">
    <p>Store Ricardo | orders@storerecardo.com</p>
  </div>
</body>
</html>
`))

// BuildMessage renders the subject and HTML body for a notification intent.
func BuildMessage(intent *notifdomain.Intent) (*Message, error) {
	customer := intent.CustomerName
	if customer == "" {
		customer = "Valued Customer"
	}

	total := formatMajor(intent.AmountMinor)
	data := messageData{
		Customer: customer,
		Section:  "Order Details",
	}

	var subject string
	switch intent.OrderStatus {
	case "completed":
		subject = fmt.Sprintf("Order Confirmation - Order #%s", intent.OrderID)
		data.Title = "Order Confirmed!"
		data.Tagline = "Thank you for your purchase"
		data.HeaderColor = "#4f46e5"
		data.AccentColor = "#4f46e5"
		data.Intro = []string{"We're excited to confirm that your order has been successfully placed and payment has been processed."}
		data.Details = []detailRow{
			{Label: "Order ID", Value: "#" + intent.OrderID},
			{Label: "Order Total", Value: total, Accent: true},
		}
		data.Outro = []string{
			"You will receive another email with tracking information once your order ships.",
			"If you have any questions about your order, please don't hesitate to contact our customer support team.",
			"Thank you for choosing Store Ricardo!",
		}

	case "cancelled":
		subject = fmt.Sprintf("Order Cancelled - Order #%s", intent.OrderID)
		data.Title = "Order Cancelled"
		data.HeaderColor = "#ef4444"
		data.AccentColor = "#ef4444"
		data.Section = "Cancelled Order Details"
		data.Intro = []string{"We're writing to inform you that your order has been cancelled."}
		data.Details = []detailRow{
			{Label: "Order ID", Value: "#" + intent.OrderID},
			{Label: "Order Total", Value: total},
		}
		data.Outro = []string{
			"If you were charged for this order, the refund will be processed within 5-7 business days and will appear on your original payment method.",
			"If you have any questions about this cancellation, please contact our customer support team.",
			"We apologize for any inconvenience.",
		}

	case "refunded":
		subject = fmt.Sprintf("Refund Processed - Order #%s", intent.OrderID)
		data.Title = "Refund Processed"
		data.HeaderColor = "#10b981"
		data.AccentColor = "#10b981"
		data.Section = "Refund Details"
		refund := intent.RefundMinor
		if refund == 0 {
			refund = intent.AmountMinor
		}
		data.Intro = []string{"Your refund has been successfully processed."}
		data.Details = []detailRow{
			{Label: "Order ID", Value: "#" + intent.OrderID},
			{Label: "Original Order Total", Value: total},
			{Label: "Refund Amount", Value: formatMajor(refund), Accent: true},
		}
		data.Outro = []string{
			"The refund will appear on your original payment method within 5-7 business days.",
			"If you have any questions about this refund, please contact our customer support team.",
			"Thank you for your understanding.",
		}

	case "failed":
		subject = fmt.Sprintf("Payment Failed - Order #%s", intent.OrderID)
		data.Title = "Payment Failed"
		data.HeaderColor = "#f59e0b"
		data.AccentColor = "#f59e0b"
		data.Intro = []string{"We were unable to process your payment for the following order:"}
		data.Details = []detailRow{
			{Label: "Order ID", Value: "#" + intent.OrderID},
			{Label: "Order Total", Value: total},
		}
		data.Outro = []string{
			"Please check your payment method and try again, or contact your bank if you believe this is an error.",
			"If you continue to experience issues, please contact our customer support team for assistance.",
		}

	case "disputed":
		subject = fmt.Sprintf("Payment Dispute - Order #%s", intent.OrderID)
		data.Title = "Payment Dispute Received"
		data.HeaderColor = "#dc2626"
		data.AccentColor = "#dc2626"
		data.Intro = []string{"We've received a payment dispute for your order. We're working to resolve this matter promptly."}
		data.Details = []detailRow{
			{Label: "Order ID", Value: "#" + intent.OrderID},
			{Label: "Order Total", Value: total},
		}
		data.Outro = []string{
			"Our customer support team will be in touch with you shortly to help resolve this dispute.",
			"If you have any immediate questions, please contact our customer support team.",
		}

	default:
		subject = fmt.Sprintf("Order Update - Order #%s", intent.OrderID)
		data.Title = "Order Update"
		data.HeaderColor = "#6366f1"
		data.AccentColor = "#6366f1"
		data.Intro = []string{"We wanted to update you on the status of your order."}
		data.Details = []detailRow{
			{Label: "Order ID", Value: "#" + intent.OrderID},
			{Label: "Current Status", Value: titleCase(intent.OrderStatus)},
			{Label: "Order Total", Value: total},
		}
		data.Outro = []string{
			"If you have any questions about your order, please contact our customer support team.",
			"Thank you for choosing Store Ricardo!",
		}
	}

	var buf strings.Builder
	if err := layoutTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render order email: %w", err)
	}

	return &Message{Subject: subject, HTML: buf.String()}, nil
}

func formatMajor(minor int64) string {
	major := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
	return "$" + major.StringFixed(2)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
