package journal_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mudler/LocalCraft/core/journal"
	"github.com/mudler/LocalCraft/core/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("JSON Store", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "state", "journal.json")
	})

	It("creates the file when missing", func() {
		store, err := journal.NewJSONStore(path)
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(path).To(BeARegularFile())
		s, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Decisions).To(BeEmpty())
	})

	It("survives a reopen", func() {
		state := types.NewAgentState()
		state.World.Set(map[string]int{"bread": 2}, types.Location{X: 3, Y: 70, Z: 9})
		first := types.NewDecision("eat", map[string]any{"item": "bread"}, "hungry", time.Unix(100, 0))
		state.Decisions.Append(first)
		state.Decisions.Append(types.IdleDecision(types.ReasoningNoDecision, time.Unix(105, 0)))

		store, err := journal.NewJSONStore(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Save(journal.Capture(state, time.Unix(110, 0)))).To(Succeed())

		reopened, err := journal.NewJSONStore(path)
		Expect(err).NotTo(HaveOccurred())
		s, err := reopened.Load()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Decisions).To(HaveLen(2))
		Expect(s.Decisions[0].ID).To(Equal(first.ID))
		Expect(s.Decisions[0].Action).To(Equal("eat"))
		Expect(s.Decisions[0].Parameters).To(HaveKeyWithValue("item", "bread"))
		Expect(s.Decisions[0].Timestamp.Equal(first.Timestamp)).To(BeTrue())
		Expect(s.Inventory).To(HaveKeyWithValue("bread", 2))
		Expect(*s.Location).To(Equal(types.Location{X: 3, Y: 70, Z: 9}))
	})

	It("fails on a corrupted file", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte("{not json"), 0644)).To(Succeed())

		_, err := journal.NewJSONStore(path)
		Expect(err).To(HaveOccurred())
	})

	It("treats an empty file as an empty journal", func() {
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, nil, 0644)).To(Succeed())

		store, err := journal.NewJSONStore(path)
		Expect(err).NotTo(HaveOccurred())
		s, _ := store.Load()
		Expect(s.Decisions).To(BeEmpty())
	})
})

var _ = Describe("Restore", func() {
	snapshot := journal.Snapshot{
		Decisions: []types.Decision{
			types.NewDecision("mine", nil, "", time.Unix(1, 0)),
			types.NewDecision("craft", nil, "", time.Unix(2, 0)),
		},
	}

	It("replays decisions into an empty log", func() {
		state := types.NewAgentState()
		Expect(journal.Restore(state, snapshot)).To(Equal(2))
		Expect(state.Decisions.All()).To(Equal(snapshot.Decisions))
		Expect(state.World.Inventory()).To(BeNil())
	})

	It("leaves a log that already has decisions alone", func() {
		state := types.NewAgentState()
		state.Decisions.Append(types.IdleDecision("", time.Unix(3, 0)))
		Expect(journal.Restore(state, snapshot)).To(BeZero())
		Expect(state.Decisions.Len()).To(Equal(1))
	})
})
