package envelope

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestSanitizeParty(t *testing.T) {
	party, err := sanitizeParty(PartyData{
		CompanyName: "  Acme Corp  ",
		ClientName:  " John Smith ",
		ClientEmail: " john@acme.com ",
		Currency:    "usd",
	})
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if party.CompanyName != "Acme Corp" || party.ClientName != "John Smith" {
		t.Fatalf("expected trimmed fields, got %+v", party)
	}
	if party.Currency != "USD" {
		t.Fatalf("expected upper-cased currency, got %q", party.Currency)
	}
}

func TestSanitizeParty_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		party PartyData
	}{
		{"missing company", PartyData{ClientName: "John", ClientEmail: "john@acme.com", Currency: "USD"}},
		{"missing client name", PartyData{CompanyName: "Acme", ClientEmail: "john@acme.com", Currency: "USD"}},
		{"bad email", PartyData{CompanyName: "Acme", ClientName: "John", ClientEmail: "not-an-email", Currency: "USD"}},
		{"bad currency", PartyData{CompanyName: "Acme", ClientName: "John", ClientEmail: "john@acme.com", Currency: "DOLLARS"}},
	}
	for _, tc := range cases {
		if _, err := sanitizeParty(tc.party); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestBuildDefinition_RoutingAndAnchors(t *testing.T) {
	party := PartyData{
		CompanyName: "Acme Corp",
		ClientName:  "John Smith",
		ClientEmail: "john@acme.com",
		Currency:    "USD",
	}
	doc := []byte("%PDF-1.7 contract body")

	def := buildDefinition(party, doc, "Pat Approver", "approver@example.com", "client-user-1")

	if len(def.Documents) != 1 {
		t.Fatalf("expected one document, got %d", len(def.Documents))
	}
	decoded, err := base64.StdEncoding.DecodeString(def.Documents[0].DocumentBase64)
	if err != nil || string(decoded) != string(doc) {
		t.Fatalf("expected document round-trip, err=%v", err)
	}

	signers := def.Recipients.Signers
	if len(signers) != 2 {
		t.Fatalf("expected two signers, got %d", len(signers))
	}

	client := signers[0]
	if client.RoutingOrder != "1" || client.Email != "john@acme.com" {
		t.Fatalf("expected counterparty first in routing, got %+v", client)
	}
	if client.ClientUserID != "client-user-1" {
		t.Fatalf("expected clientUserId on counterparty, got %q", client.ClientUserID)
	}
	if client.Tabs.SignHereTabs[0].AnchorString != "/s2/" || client.Tabs.DateSignedTabs[0].AnchorString != "/d2/" {
		t.Fatalf("expected counterparty anchors /s2/,/d2/, got %+v", client.Tabs)
	}

	approver := signers[1]
	if approver.RoutingOrder != "2" || approver.Email != "approver@example.com" {
		t.Fatalf("expected approver second in routing, got %+v", approver)
	}
	if approver.ClientUserID != "" {
		t.Fatal("approver must not carry a clientUserId")
	}
	if approver.Tabs.SignHereTabs[0].AnchorString != "/s1/" || approver.Tabs.DateSignedTabs[0].AnchorString != "/d1/" {
		t.Fatalf("expected approver anchors /s1/,/d1/, got %+v", approver.Tabs)
	}

	if !strings.Contains(def.EmailSubject, "Acme Corp") {
		t.Fatalf("expected company in subject, got %q", def.EmailSubject)
	}
}

func TestStatusTransitions(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusUnsent, StatusSent},
		{StatusUnsent, StatusSendFailed},
		{StatusSent, StatusViewGenerated},
		{StatusSent, StatusSendFailed},
		{StatusViewGenerated, StatusCompleted},
		{StatusCompleted, StatusHandoffConsumed},
	}
	for _, tr := range legal {
		if !tr.from.CanTransition(tr.to) {
			t.Errorf("expected %s -> %s to be legal", tr.from, tr.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusSendFailed, StatusSent},
		{StatusSendFailed, StatusCompleted},
		{StatusHandoffConsumed, StatusCompleted},
		{StatusUnsent, StatusCompleted},
	}
	for _, tr := range illegal {
		if tr.from.CanTransition(tr.to) {
			t.Errorf("expected %s -> %s to be illegal", tr.from, tr.to)
		}
	}
}
