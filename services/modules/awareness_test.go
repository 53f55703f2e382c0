package modules_test

import (
	"context"

	"github.com/mudler/LocalCraft/core/types"
	. "github.com/mudler/LocalCraft/services/modules"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Awareness", func() {
	var (
		ctx       context.Context
		state     *types.AgentState
		awareness *Awareness
	)

	feedback := func() []Feedback {
		v, ok := state.ActionAwareness.Get(types.ActionFeedbackKey)
		Expect(ok).To(BeTrue())
		return v.([]Feedback)
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		state = types.NewAgentState()
		state.World.Set(map[string]int{"log": 2}, types.Location{})
		awareness, err = NewAwareness(newConfig(), state)
		Expect(err).NotTo(HaveOccurred())
	})

	It("does not attribute the starting inventory to a decision", func() {
		Expect(awareness.OnDecision(ctx, decision("collect", map[string]any{"item": "log"}))).To(Succeed())
		Expect(awareness.Update(ctx)).To(Succeed())

		fb := feedback()
		Expect(fb).To(HaveLen(1))
		Expect(fb[0].Observed).To(BeFalse())
	})

	It("attributes the change since the previous tick", func() {
		Expect(awareness.Update(ctx)).To(Succeed())

		Expect(awareness.OnDecision(ctx, decision("collect", map[string]any{"item": "log"}))).To(Succeed())
		state.World.Set(map[string]int{"log": 3, "sapling": 1}, types.Location{X: 2})
		Expect(awareness.Update(ctx)).To(Succeed())

		fb := feedback()
		Expect(fb).To(HaveLen(1))
		Expect(fb[0].Action).To(Equal("collect"))
		Expect(fb[0].Observed).To(BeTrue())
		Expect(fb[0].Moved).To(BeTrue())
		Expect(fb[0].InventoryDelta).To(Equal(map[string]int{"log": 1, "sapling": 1}))

		state.World.SetInventory(map[string]int{"sapling": 1})
		Expect(awareness.Update(ctx)).To(Succeed())
		Expect(feedback()[0].InventoryDelta).To(Equal(map[string]int{"log": 1, "sapling": 1}))
	})

	It("keeps only the configured window", func() {
		for _, action := range []string{"a", "b", "c", "d", "e"} {
			Expect(awareness.OnDecision(ctx, decision(action, nil))).To(Succeed())
		}
		Expect(awareness.Update(ctx)).To(Succeed())

		actions := []string{}
		for _, f := range feedback() {
			actions = append(actions, f.Action)
		}
		Expect(actions).To(Equal([]string{"c", "d", "e"}))
	})
})
