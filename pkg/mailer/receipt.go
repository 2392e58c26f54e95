package mailer

import (
	"fmt"
	"html/template"
	"math/rand"
	"strings"

	"payment-gateway/pkg/ledger"
)

// Receipt holds the fields rendered into the HTML receipt email.
type Receipt struct {
	Date         string
	CustomerName string
	Amount       string
	Merchant     string
	InvoiceNo    string
	TxID         string
	Method       string
	ApprovalCode string
}

// BuildReceipt derives receipt fields from a completed transaction.
// The approval code is cosmetic and not validated against anything.
func BuildReceipt(tx *ledger.Transaction) Receipt {
	name := tx.Email
	if at := strings.Index(tx.Email, "@"); at >= 0 {
		name = tx.Email[:at]
	}

	method := "EMV QR"
	if tx.Type == ledger.TypeTrueMoney {
		method = "TrueMoney Gift"
	}

	return Receipt{
		Date:         tx.Timestamp,
		CustomerName: name,
		Amount:       tx.Amount,
		Merchant:     tx.Merchant,
		InvoiceNo:    strings.Replace(tx.ID, "TXN-", "INV-", 1),
		TxID:         tx.ID,
		Method:       method,
		ApprovalCode: fmt.Sprintf("%06d", 100000+rand.Intn(900000)),
	}
}

// Render produces the HTML body for the receipt email.
func (r Receipt) Render() (string, error) {
	var sb strings.Builder
	if err := receiptTemplate.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return sb.String(), nil
}

// Subject returns the email subject line for this receipt.
func (r Receipt) Subject() string {
	return "Receipt for your payment " + r.TxID
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Helvetica, Arial, sans-serif; background-color: #f6f9fc; margin: 0; padding: 0; }
  .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 8px; overflow: hidden; }
  .header { background: #002060; padding: 20px; text-align: center; color: white; }
  .content { padding: 30px; }
  .table-details { width: 100%; border-collapse: collapse; margin: 20px 0; }
  .table-details td { padding: 8px 0; border-bottom: 1px solid #eee; font-size: 14px; }
  .footer { background: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #666; }
</style>
</head>
<body>
<div class="container">
    <div class="header">
        <h2>Transaction Receipt</h2>
        <p>{{.Date}}</p>
    </div>
    <div class="content">
        <p>Dear <strong>{{.CustomerName}}</strong>,</p>
        <p>You made a payment of <strong>{{.Amount}} THB</strong> to <strong>{{.Merchant}}</strong></p>

        <div style="background:#f0f4f8; padding:15px; border-radius:5px; margin:15px 0;">
            <strong>Merchant:</strong> {{.Merchant}}
        </div>

        <h3>Transaction Details</h3>
        <table class="table-details">
            <tr><td>Invoice Number:</td><td align="right">{{.InvoiceNo}}</td></tr>
            <tr><td>Transaction Reference:</td><td align="right">{{.TxID}}</td></tr>
            <tr><td>Transaction Date/Time:</td><td align="right">{{.Date}}</td></tr>
            <tr><td>Paid via:</td><td align="right">{{.Method}}</td></tr>
            <tr><td>Approval Code:</td><td align="right">{{.ApprovalCode}}</td></tr>
        </table>

        <table width="100%" style="margin-top:20px;">
            <tr>
                <td><strong>Description</strong></td>
                <td align="right"><strong>Amount</strong></td>
            </tr>
            <tr>
                <td style="padding:10px 0; border-bottom:1px solid #ccc;">Payment for Goods/Services</td>
                <td align="right" style="padding:10px 0; border-bottom:1px solid #ccc;">{{.Amount}} THB</td>
            </tr>
            <tr>
                <td style="padding-top:10px;"><strong>Total</strong></td>
                <td align="right" style="padding-top:10px; color:#002060; font-size:18px;"><strong>{{.Amount}} THB</strong></td>
            </tr>
        </table>

        <div style="margin-top:30px; padding-top:20px; border-top:1px solid #eee;">
            <p style="font-size:12px; color:#666;">For further information and assistance please contact:</p>
            <p><strong>{{.Merchant}}</strong><br>Tel: 08X-XXX-XXXX<br>Email: support@bungkii.com</p>
        </div>
    </div>
    <div class="footer">
        Please do not reply to this email.<br>
        Copyright &copy; Bungkii | www.bungkii.com
    </div>
</div>
</body>
</html>
`))
