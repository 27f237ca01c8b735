package reachfive

import (
	"encoding/json"
	"testing"
)

func TestFlowKind_Text(t *testing.T) {
	for kind, name := range flowKindNames {
		text, err := kind.MarshalText()
		if err != nil || string(text) != name {
			t.Errorf("MarshalText(%d) = %q, %v", kind, text, err)
		}
		var back FlowKind
		if err := back.UnmarshalText(text); err != nil || back != kind {
			t.Errorf("UnmarshalText(%q) = %d, %v", text, back, err)
		}
	}

	if _, err := FlowKind(99).MarshalText(); err == nil {
		t.Error("MarshalText should reject unknown kinds")
	}
	var k FlowKind
	if err := k.UnmarshalText([]byte("nope")); err == nil {
		t.Error("UnmarshalText should reject unknown names")
	}
}

func TestPendingFlow_JSON(t *testing.T) {
	flow := NewPendingFlow(FlowWebAuthnSignup, RequestCodeWebAuthnSignup, NewScopeSet("openid"))
	flow.WithExtra(ExtraWebAuthnID, "d2E")

	data, err := json.Marshal(flow)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["kind"] != "webauthn_signup" {
		t.Errorf("kind = %v", raw["kind"])
	}

	var back PendingFlow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Kind != FlowWebAuthnSignup || back.Extra[ExtraWebAuthnID] != "d2E" {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestFlowKey(t *testing.T) {
	flow := NewPendingFlow(FlowWebRedirect, RequestCodeWebLogin, nil)
	if flow.PkceKey() != "web_redirect:52557" {
		t.Errorf("PkceKey() = %q", flow.PkceKey())
	}
	if NewState() == NewState() {
		t.Error("NewState() should be random")
	}
}
