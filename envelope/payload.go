package envelope

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"signflow/esign"
)

// Anchor markers embedded in the contract document template. The approver
// signs at /s1/,/d1/ and the counterparty at /s2/,/d2/; the literals must
// match the template exactly or the provider places no tabs.
const (
	approverSignAnchor = "/s1/"
	approverDateAnchor = "/d1/"
	clientSignAnchor   = "/s2/"
	clientDateAnchor   = "/d2/"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// sanitizeParty trims and validates the counterparty fields. The currency is
// normalized to its upper-case display form.
func sanitizeParty(party PartyData) (PartyData, error) {
	party.CompanyName = strings.TrimSpace(party.CompanyName)
	party.ClientName = strings.TrimSpace(party.ClientName)
	party.ClientEmail = strings.TrimSpace(party.ClientEmail)
	party.Currency = strings.ToUpper(strings.TrimSpace(party.Currency))

	if party.CompanyName == "" {
		return PartyData{}, fmt.Errorf("envelope: company name is required")
	}
	if party.ClientName == "" {
		return PartyData{}, fmt.Errorf("envelope: client name is required")
	}
	if party.ClientEmail == "" || !strings.Contains(party.ClientEmail, "@") {
		return PartyData{}, fmt.Errorf("envelope: client email %q is invalid", party.ClientEmail)
	}
	if !currencyPattern.MatchString(party.Currency) {
		return PartyData{}, fmt.Errorf("envelope: currency %q is not a 3-letter code", party.Currency)
	}

	return party, nil
}

// buildDefinition assembles the envelope payload: one base64 document and two
// signers. The counterparty carries routing order 1 so they sign before the
// approver is notified; clientUserID marks them as the embedded recipient.
func buildDefinition(party PartyData, contractDocument []byte, approverName, approverEmail, clientUserID string) esign.EnvelopeDefinition {
	def := esign.EnvelopeDefinition{
		EmailSubject: "Please sign: Agreement with " + party.CompanyName,
		Documents: []esign.Document{{
			DocumentBase64: base64.StdEncoding.EncodeToString(contractDocument),
			Name:           "agreement.pdf",
			FileExtension:  "pdf",
			DocumentID:     "1",
		}},
		Status: "sent",
	}

	def.Recipients.Signers = []esign.Signer{
		{
			Email:        party.ClientEmail,
			Name:         party.ClientName,
			RecipientID:  "1",
			RoutingOrder: "1",
			ClientUserID: clientUserID,
			Tabs: &esign.Tabs{
				SignHereTabs:   []esign.AnchorTab{{AnchorString: clientSignAnchor}},
				DateSignedTabs: []esign.AnchorTab{{AnchorString: clientDateAnchor}},
			},
		},
		{
			Email:        approverEmail,
			Name:         approverName,
			RecipientID:  "2",
			RoutingOrder: "2",
			Tabs: &esign.Tabs{
				SignHereTabs:   []esign.AnchorTab{{AnchorString: approverSignAnchor}},
				DateSignedTabs: []esign.AnchorTab{{AnchorString: approverDateAnchor}},
			},
		},
	}

	return def
}
