package llm_test

import (
	"time"

	"github.com/mudler/LocalCraft/core/types"
	. "github.com/mudler/LocalCraft/pkg/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractJSON", func() {
	It("takes the span from the first to the last brace", func() {
		span, ok := ExtractJSON(`Sure! {"action": "mine", "parameters": {"block": "stone"}} hope it helps`)
		Expect(ok).To(BeTrue())
		Expect(span).To(Equal(`{"action": "mine", "parameters": {"block": "stone"}}`))
	})

	It("reports when no span exists", func() {
		for _, text := range []string{"", "no braces here", "} backwards {", "{ unterminated"} {
			_, ok := ExtractJSON(text)
			Expect(ok).To(BeFalse(), text)
		}
	})
})

var _ = Describe("ParseDecision", func() {
	now := time.Unix(1700000000, 0)

	It("reads action, parameters and reasoning", func() {
		d := ParseDecision("```json\n{\"action\": \"craft\", \"parameters\": {\"item\": \"table\"}, \"reasoning\": \"need one\"}\n```", now)

		Expect(d.Action).To(Equal("craft"))
		Expect(d.Parameters).To(HaveKeyWithValue("item", "table"))
		Expect(d.Reasoning).To(Equal("need one"))
		Expect(d.Timestamp).To(Equal(now))
		Expect(d.ID).NotTo(BeEmpty())
	})

	It("fills missing fields with defaults", func() {
		d := ParseDecision(`{"parameters": "not an object"}`, now)

		Expect(d.Action).To(Equal(types.IdleAction))
		Expect(d.Parameters).To(BeEmpty())
		Expect(d.Parameters).NotTo(BeNil())
		Expect(d.Reasoning).To(Equal(types.ReasoningNotProvided))
	})

	It("treats an empty action as idle", func() {
		d := ParseDecision(`{"action": "", "reasoning": "unsure"}`, now)
		Expect(d.Action).To(Equal(types.IdleAction))
		Expect(d.Reasoning).To(Equal("unsure"))
	})

	It("idles when there is no JSON", func() {
		d := ParseDecision("I would rather not decide", now)
		Expect(d.Action).To(Equal(types.IdleAction))
		Expect(d.Reasoning).To(Equal(types.ReasoningNoJSON))
		Expect(d.Timestamp).To(Equal(now))
	})

	It("idles when the JSON is malformed", func() {
		d := ParseDecision(`{"action": "mine",}`, now)
		Expect(d.Action).To(Equal(types.IdleAction))
		Expect(d.Reasoning).To(Equal(types.ReasoningLLMParseFailed))
	})
})
