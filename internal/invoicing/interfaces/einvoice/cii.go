package einvoice

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-desk/internal/invoicing/application"
	invoicing "invoice-desk/internal/invoicing/domain"
)

const (
	// GuidelineEN16931 identifies the Factur-X EN16931 (comfort) profile.
	GuidelineEN16931 = "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:comfort"

	nsRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	nsRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
	nsQDT = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"

	typeCommercialInvoice = "380"
	dateFormat102         = "102"
	unitPiece             = "C62"
	paymentCreditTransfer = "58"
	currencyEUR           = "EUR"
	countryDE             = "DE"
	categoryStandard      = "S"
	categoryZero          = "Z"
	taxTypeVAT            = "VAT"
	schemeVATID           = "VA"
	schemeTaxNumber       = "FC"
	schemeEmail           = "EM"
	reasonDiscount        = "Rabatt"
)

type crossIndustryInvoice struct {
	XMLName     xml.Name         `xml:"rsm:CrossIndustryInvoice"`
	RSM         string           `xml:"xmlns:rsm,attr"`
	RAM         string           `xml:"xmlns:ram,attr"`
	UDT         string           `xml:"xmlns:udt,attr"`
	QDT         string           `xml:"xmlns:qdt,attr"`
	Context     documentContext  `xml:"rsm:ExchangedDocumentContext"`
	Document    documentHeader   `xml:"rsm:ExchangedDocument"`
	Transaction tradeTransaction `xml:"rsm:SupplyChainTradeTransaction"`
}

type documentContext struct {
	GuidelineID string `xml:"ram:GuidelineSpecifiedDocumentContextParameter>ram:ID"`
}

type documentHeader struct {
	ID        string   `xml:"ram:ID"`
	TypeCode  string   `xml:"ram:TypeCode"`
	IssueDate dateTime `xml:"ram:IssueDateTime"`
	Notes     []note   `xml:"ram:IncludedNote,omitempty"`
}

type note struct {
	Content string `xml:"ram:Content"`
}

type dateTime struct {
	Value formattedDate `xml:"udt:DateTimeString"`
}

type formattedDate struct {
	Format string `xml:"format,attr"`
	Value  string `xml:",chardata"`
}

type tradeTransaction struct {
	Lines      []lineItem       `xml:"ram:IncludedSupplyChainTradeLineItem"`
	Agreement  headerAgreement  `xml:"ram:ApplicableHeaderTradeAgreement"`
	Delivery   headerDelivery   `xml:"ram:ApplicableHeaderTradeDelivery"`
	Settlement headerSettlement `xml:"ram:ApplicableHeaderTradeSettlement"`
}

type lineItem struct {
	LineID      string         `xml:"ram:AssociatedDocumentLineDocument>ram:LineID"`
	ProductName string         `xml:"ram:SpecifiedTradeProduct>ram:Name"`
	NetPrice    string         `xml:"ram:SpecifiedLineTradeAgreement>ram:NetPriceProductTradePrice>ram:ChargeAmount"`
	Quantity    quantity       `xml:"ram:SpecifiedLineTradeDelivery>ram:BilledQuantity"`
	Settlement  lineSettlement `xml:"ram:SpecifiedLineTradeSettlement"`
}

type quantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type lineSettlement struct {
	Tax       tradeTax `xml:"ram:ApplicableTradeTax"`
	LineTotal string   `xml:"ram:SpecifiedTradeSettlementLineMonetarySummation>ram:LineTotalAmount"`
}

type tradeTax struct {
	CalculatedAmount string `xml:"ram:CalculatedAmount,omitempty"`
	TypeCode         string `xml:"ram:TypeCode"`
	BasisAmount      string `xml:"ram:BasisAmount,omitempty"`
	CategoryCode     string `xml:"ram:CategoryCode"`
	Rate             string `xml:"ram:RateApplicablePercent"`
}

type headerAgreement struct {
	Seller tradeParty `xml:"ram:SellerTradeParty"`
	Buyer  tradeParty `xml:"ram:BuyerTradeParty"`
}

type tradeParty struct {
	Name             string            `xml:"ram:Name"`
	Address          postalAddress     `xml:"ram:PostalTradeAddress"`
	Email            *schemedID        `xml:"ram:URIUniversalCommunication>ram:URIID,omitempty"`
	TaxRegistrations []taxRegistration `xml:"ram:SpecifiedTaxRegistration,omitempty"`
}

type postalAddress struct {
	Postcode string `xml:"ram:PostcodeCode"`
	LineOne  string `xml:"ram:LineOne"`
	City     string `xml:"ram:CityName"`
	Country  string `xml:"ram:CountryID"`
}

type taxRegistration struct {
	ID schemedID `xml:"ram:ID"`
}

type schemedID struct {
	Scheme string `xml:"schemeID,attr"`
	Value  string `xml:",chardata"`
}

type headerDelivery struct {
	Occurrence *dateTime `xml:"ram:ActualDeliverySupplyChainEvent>ram:OccurrenceDateTime,omitempty"`
}

type headerSettlement struct {
	PaymentReference string            `xml:"ram:PaymentReference,omitempty"`
	Currency         string            `xml:"ram:InvoiceCurrencyCode"`
	PaymentMeans     *paymentMeans     `xml:"ram:SpecifiedTradeSettlementPaymentMeans,omitempty"`
	Taxes            []tradeTax        `xml:"ram:ApplicableTradeTax"`
	Allowances       []allowanceCharge `xml:"ram:SpecifiedTradeAllowanceCharge,omitempty"`
	PaymentTerms     *paymentTerms     `xml:"ram:SpecifiedTradePaymentTerms,omitempty"`
	Summation        monetarySummation `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
}

type paymentMeans struct {
	TypeCode string `xml:"ram:TypeCode"`
	IBAN     string `xml:"ram:PayeePartyCreditorFinancialAccount>ram:IBANID"`
	BIC      string `xml:"ram:PayeeSpecifiedCreditorFinancialInstitution>ram:BICID,omitempty"`
}

type allowanceCharge struct {
	Indicator bool     `xml:"ram:ChargeIndicator>udt:Indicator"`
	Amount    string   `xml:"ram:ActualAmount"`
	Reason    string   `xml:"ram:Reason"`
	Tax       tradeTax `xml:"ram:CategoryTradeTax"`
}

type paymentTerms struct {
	Due dateTime `xml:"ram:DueDateDateTime"`
}

type monetarySummation struct {
	LineTotal      string   `xml:"ram:LineTotalAmount"`
	AllowanceTotal string   `xml:"ram:AllowanceTotalAmount,omitempty"`
	TaxBasisTotal  string   `xml:"ram:TaxBasisTotalAmount"`
	TaxTotal       currency `xml:"ram:TaxTotalAmount"`
	GrandTotal     string   `xml:"ram:GrandTotalAmount"`
	DuePayable     string   `xml:"ram:DuePayableAmount"`
}

type currency struct {
	ID    string `xml:"currencyID,attr"`
	Value string `xml:",chardata"`
}

// taxGroup is the per-rate breakdown used for header taxes and allowances.
type taxGroup struct {
	rate      decimal.Decimal
	net       decimal.Decimal
	basis     decimal.Decimal
	amount    decimal.Decimal
	allowance decimal.Decimal
}

// BuildCII renders the invoice as a Factur-X EN16931 CrossIndustryInvoice document.
func BuildCII(doc application.Document) ([]byte, error) {
	inv := doc.Invoice
	if inv == nil {
		return nil, invoicing.ErrNilInvoice
	}
	if strings.TrimSpace(inv.Number) == "" {
		return nil, fmt.Errorf("cii: invoice %d has no number", inv.ID)
	}
	t := doc.Totals
	groups := taxGroups(inv.Lines, t)

	out := crossIndustryInvoice{
		RSM:     nsRSM,
		RAM:     nsRAM,
		UDT:     nsUDT,
		QDT:     nsQDT,
		Context: documentContext{GuidelineID: GuidelineEN16931},
		Document: documentHeader{
			ID:        inv.Number,
			TypeCode:  typeCommercialInvoice,
			IssueDate: date102(inv.Date.Format("20060102")),
		},
	}
	if inv.Subject != "" {
		out.Document.Notes = append(out.Document.Notes, note{Content: inv.Subject})
	}
	if inv.Notes != "" {
		out.Document.Notes = append(out.Document.Notes, note{Content: inv.Notes})
	}

	for _, line := range inv.Lines {
		out.Transaction.Lines = append(out.Transaction.Lines, lineItem{
			LineID:      fmt.Sprintf("%d", line.Position),
			ProductName: line.Description,
			NetPrice:    line.UnitPrice.StringFixed(2),
			Quantity:    quantity{UnitCode: unitPiece, Value: line.Quantity.StringFixed(2)},
			Settlement: lineSettlement{
				Tax: tradeTax{
					TypeCode:     taxTypeVAT,
					CategoryCode: category(line.TaxRate),
					Rate:         line.TaxRate.StringFixed(2),
				},
				LineTotal: line.Total().StringFixed(2),
			},
		})
	}

	out.Transaction.Agreement = headerAgreement{
		Seller: seller(doc),
		Buyer:  buyer(doc),
	}
	if !inv.ServiceDate.IsZero() {
		occurrence := date102(inv.ServiceDate.Format("20060102"))
		out.Transaction.Delivery.Occurrence = &occurrence
	}

	settlement := headerSettlement{
		PaymentReference: inv.Number,
		Currency:         currencyEUR,
	}
	if iban := strings.ReplaceAll(doc.Supplier.IBAN, " ", ""); iban != "" {
		settlement.PaymentMeans = &paymentMeans{
			TypeCode: paymentCreditTransfer,
			IBAN:     iban,
			BIC:      strings.TrimSpace(doc.Supplier.BIC),
		}
	}
	for _, g := range groups {
		settlement.Taxes = append(settlement.Taxes, tradeTax{
			CalculatedAmount: g.amount.StringFixed(2),
			TypeCode:         taxTypeVAT,
			BasisAmount:      g.basis.StringFixed(2),
			CategoryCode:     category(g.rate),
			Rate:             g.rate.StringFixed(2),
		})
		if g.allowance.IsZero() {
			continue
		}
		settlement.Allowances = append(settlement.Allowances, allowanceCharge{
			Indicator: false,
			Amount:    g.allowance.StringFixed(2),
			Reason:    reasonDiscount,
			Tax: tradeTax{
				TypeCode:     taxTypeVAT,
				CategoryCode: category(g.rate),
				Rate:         g.rate.StringFixed(2),
			},
		})
	}
	if due := inv.DueDate(); !due.IsZero() {
		settlement.PaymentTerms = &paymentTerms{Due: date102(due.Format("20060102"))}
	}
	settlement.Summation = monetarySummation{
		LineTotal:     t.Net.StringFixed(2),
		TaxBasisTotal: t.NetAfterDiscount.StringFixed(2),
		TaxTotal:      currency{ID: currencyEUR, Value: t.TaxTotal.StringFixed(2)},
		GrandTotal:    t.Gross.StringFixed(2),
		DuePayable:    t.Gross.StringFixed(2),
	}
	if !t.Discount.IsZero() {
		settlement.Summation.AllowanceTotal = t.Discount.StringFixed(2)
	}
	out.Transaction.Settlement = settlement

	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cii: marshal: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// taxGroups splits the invoice by rate. Positive rates take basis and amount from the
// computed totals; the discount allowance per rate absorbs the cent residue in the last group.
func taxGroups(lines []invoicing.InvoiceLine, t invoicing.Totals) []taxGroup {
	var groups []taxGroup
	for _, line := range lines {
		idx := -1
		for i := range groups {
			if groups[i].rate.Equal(line.TaxRate) {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, taxGroup{rate: line.TaxRate, net: decimal.Zero})
			idx = len(groups) - 1
		}
		groups[idx].net = groups[idx].net.Add(line.Total())
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].rate.LessThan(groups[j].rate) })

	allocated := decimal.Zero
	for i := range groups {
		g := &groups[i]
		g.net = g.net.Round(2)
		g.basis = g.net
		g.amount = decimal.Zero
		for _, tax := range t.Taxes {
			if tax.Rate.Equal(g.rate) {
				g.basis = tax.Base
				g.amount = tax.Amount
			}
		}
		if !g.rate.IsPositive() && t.Net.IsPositive() {
			g.basis = g.net.Sub(t.Discount.Mul(g.net).Div(t.Net)).Round(2)
		}
		if i == len(groups)-1 {
			g.allowance = t.Discount.Sub(allocated)
		} else {
			g.allowance = g.net.Sub(g.basis)
			allocated = allocated.Add(g.allowance)
		}
	}
	return groups
}

func seller(doc application.Document) tradeParty {
	s := doc.Supplier
	party := tradeParty{
		Name: s.Company,
		Address: postalAddress{
			Postcode: s.PostalCode,
			LineOne:  s.Street,
			City:     s.City,
			Country:  countryDE,
		},
	}
	if s.Email != "" {
		party.Email = &schemedID{Scheme: schemeEmail, Value: s.Email}
	}
	if s.VATID != "" {
		party.TaxRegistrations = append(party.TaxRegistrations, taxRegistration{ID: schemedID{Scheme: schemeVATID, Value: s.VATID}})
	}
	if s.TaxNumber != "" {
		party.TaxRegistrations = append(party.TaxRegistrations, taxRegistration{ID: schemedID{Scheme: schemeTaxNumber, Value: s.TaxNumber}})
	}
	return party
}

func buyer(doc application.Document) tradeParty {
	c := doc.Customer
	party := tradeParty{
		Name: c.FullName(),
		Address: postalAddress{
			Postcode: c.PostalCode,
			LineOne:  c.Street,
			City:     c.City,
			Country:  countryDE,
		},
	}
	if c.Email != "" {
		party.Email = &schemedID{Scheme: schemeEmail, Value: c.Email}
	}
	return party
}

func category(rate decimal.Decimal) string {
	if rate.IsPositive() {
		return categoryStandard
	}
	return categoryZero
}

func date102(value string) dateTime {
	return dateTime{Value: formattedDate{Format: dateFormat102, Value: value}}
}
