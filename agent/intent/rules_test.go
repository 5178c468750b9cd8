package intent

import (
	"context"
	"testing"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

func TestRuleClassifier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want contractx.Intent
	}{
		{"hola, buenas tardes", contractx.IntentGreeting},
		{"me llamo Ana Torres", contractx.IntentProvideName},
		{"quiero dos pizzas margherita", contractx.IntentTakeOrder},
		{"eso es todo, gracias", contractx.IntentFinalizeOrder},
		{"sí, confirmo", contractx.IntentConfirmOrder},
		{"mi dirección es Av. Larco 345", contractx.IntentGiveAddress},
		{"¿a qué hora abren?", contractx.IntentAskSchedule},
		{"tengo un reclamo, la pizza llegó fría", contractx.IntentMakeComplaint},
		{"mmm déjame pensarlo", contractx.IntentContinue},
		{"", contractx.IntentContinue},
	}

	c := NewRuleClassifier()
	for _, tc := range cases {
		got, err := c.Classify(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", tc.text, err)
		}
		if got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestRuleClassifierOrderBeatsGreeting(t *testing.T) {
	t.Parallel()

	c := NewRuleClassifier()
	got, err := c.Classify(context.Background(), "hola, quiero una pizza hawaiana")
	if err != nil {
		t.Fatal(err)
	}
	if got != contractx.IntentTakeOrder {
		t.Fatalf("order keywords must outrank the greeting, got %s", got)
	}
}
