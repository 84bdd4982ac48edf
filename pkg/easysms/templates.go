package easysms

import "strings"

// Message templates use {placeholder} markers substituted by Render.
const (
	TemplateBookingConfirmation = "Hello {client_name}, your booking for {service_name} at {store_name} on {booking_date} at {start_time} is confirmed. See you there!"
	TemplateBookingReminder     = "Hello {client_name}, this is a reminder for your booking for {service_name} at {store_name} tomorrow, {booking_date} at {start_time}."
	TemplateBookingCancellation = "Hello {client_name}, your booking for {service_name} at {store_name} on {booking_date} at {start_time} has been cancelled."
	TemplatePaymentConfirmation = "Hello {client_name}, we received your payment of {amount} {currency} for {service_name} at {store_name}. Thank you!"
)

// Render substitutes {key} markers in a template with the given values.
// Unknown markers are left in place.
func Render(template string, values map[string]string) string {
	result := template
	for key, value := range values {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
