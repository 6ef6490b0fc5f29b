package ecorepay

import (
	"regexp"
	"strings"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrency  = "USD"
	defaultIPAddress = "127.0.0.1"
	unknownRegion    = "XX"
	countryUS        = "US"
)

var regionPattern = regexp.MustCompile(`^[A-Za-z]{2,7}$`)

var phoneStripper = strings.NewReplacer(" ", "", "(", "", ")", "", "+", "", "-", "")

// NormalizeRegion returns the region code when it is 2-7 letters, otherwise XX
func NormalizeRegion(region string) string {
	if regionPattern.MatchString(region) {
		return region
	}
	return unknownRegion
}

// NormalizePhone strips formatting characters and keeps the last ten characters
func NormalizePhone(phone string) string {
	phone = phoneStripper.Replace(phone)
	if len(phone) > 10 {
		return phone[len(phone)-10:]
	}
	return phone
}

func ipAddressOrDefault(ip string) string {
	if ip = strings.TrimSpace(ip); ip != "" {
		return ip
	}
	return defaultIPAddress
}

// saleFields builds the Transaction element of an AuthorizeCapture request
func (c *Client) saleFields(order *domain.Order, amount decimal.Decimal, now time.Time) Fields {
	p := order.Payment
	addr := order.BillingAddress
	if addr == nil {
		addr = &domain.Address{}
	}

	var dob string
	if addr.Country == countryUS {
		dob = formatCustomerDOB(order.CustomerDOB)
		if dob == "" {
			dob = c.dobPolicy(now)
		}
	}

	return Fields{
		Scalar("Reference", order.IncrementID),
		Scalar("Amount", amount.StringFixed(2)),
		Scalar("Currency", defaultCurrency),
		Scalar("IPAddress", ipAddressOrDefault(order.RemoteIP)),
		Scalar("Email", order.CustomerEmail),
		Scalar("Phone", NormalizePhone(addr.Telephone)),
		Scalar("FirstName", addr.FirstName),
		Scalar("LastName", addr.LastName),
		Scalar("Address", addr.Street),
		Scalar("City", addr.City),
		Scalar("State", NormalizeRegion(addr.RegionCode)),
		Scalar("PostCode", addr.PostCode),
		Scalar("Country", addr.Country),
		Scalar("DOB", dob),
		Scalar("SSN", ""),
		Scalar("CardNumber", p.CCNumber),
		Scalar("CardExpMonth", p.CCExpMonth),
		Scalar("CardExpYear", p.CCExpYear),
		Scalar("CardCVV", p.CCCid),
	}
}

func voidFields(parentTransactionID string) Fields {
	return Fields{
		Scalar("TransactionID", parentTransactionID),
	}
}

func refundFields(amount decimal.Decimal, transactionID string) Fields {
	return Fields{
		Scalar("Amount", amount.StringFixed(2)),
		Scalar("TransactionID", transactionID),
	}
}

func lookupFields(reference, transactionID string) Fields {
	return Fields{
		Scalar("Reference", reference),
		Scalar("TransactionID", transactionID),
	}
}
