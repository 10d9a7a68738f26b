package raglinecmder_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	raglinecmder "github.com/papercomputeco/ragline/cmd/ragline"
	apisearch "github.com/papercomputeco/ragline/api/search"
	"github.com/papercomputeco/ragline/pkg/rag"
	"github.com/papercomputeco/ragline/pkg/storage"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
)

const (
	refundText = "Refunds are issued within five business days of the request."
	travelText = "Travel must be approved by a manager before booking."
)

var _ = Describe("ragline", func() {
	var (
		configDir string
		docsDir   string
		ollama    *testutils.FakeOllama
	)

	run := func(stdin string, args ...string) (string, error) {
		out := &bytes.Buffer{}
		cmd := raglinecmder.NewRaglineCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--config-dir", configDir))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		docsDir = GinkgoT().TempDir()
		ollama = testutils.NewFakeOllama("Five business days.")
		DeferCleanup(ollama.Close)

		cfg := fmt.Sprintf(`version = 1

[embedding]
provider = "ollama"
target = %q
model = "letters"
dimensions = 26

[llm]
provider = "ollama"
target = %q
model = "answers"
`, ollama.URL, ollama.URL)
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(cfg), 0o600)).To(Succeed())

		Expect(os.MkdirAll(filepath.Join(docsDir, "policies"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(docsDir, "policies", "refunds.md"), []byte(refundText), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(docsDir, "policies", "travel.txt"), []byte(travelText), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(docsDir, "logo.png"), []byte{0x89, 'P', 'N', 'G'}, 0o600)).To(Succeed())

		out, err := run("", "ingest", docsDir)
		Expect(err).NotTo(HaveOccurred(), out)
		Expect(out).To(ContainSubstring("2 ingested, 0 failed"))
	})

	It("registers every supported file", func() {
		out, err := run("", "documents", "list", "--json")
		Expect(err).NotTo(HaveOccurred())

		var docs []storage.Document
		Expect(json.Unmarshal([]byte(out), &docs)).To(Succeed())
		Expect(docs).To(HaveLen(2))

		titles := []string{docs[0].Title, docs[1].Title}
		Expect(titles).To(ConsistOf("refunds", "travel"))
		Expect(docs[0].Category).To(Equal("policies"))
		Expect(docs[0].ChunkCount).To(Equal(1))
	})

	It("replaces a document when its file is ingested again", func() {
		_, err := run("", "ingest", filepath.Join(docsDir, "policies", "refunds.md"))
		Expect(err).NotTo(HaveOccurred())

		out, err := run("", "documents", "list", "--json")
		Expect(err).NotTo(HaveOccurred())
		var docs []storage.Document
		Expect(json.Unmarshal([]byte(out), &docs)).To(Succeed())
		Expect(docs).To(HaveLen(2))
	})

	It("searches the index", func() {
		out, err := run("", "search", refundText, "--top-k", "1", "--json")
		Expect(err).NotTo(HaveOccurred())

		var output apisearch.Output
		Expect(json.Unmarshal([]byte(out), &output)).To(Succeed())
		Expect(output.Count).To(Equal(1))
		Expect(output.Results[0].Text).To(Equal(refundText))
		Expect(output.Results[0].Title).To(Equal("refunds"))
		Expect(output.Results[0].Score).To(BeNumerically("~", 1.0, 1e-4))
	})

	It("answers from the retrieved chunks", func() {
		out, err := run("", "ask", "When", "are", "refunds", "issued?", "--json")
		Expect(err).NotTo(HaveOccurred())

		var answer rag.Answer
		Expect(json.Unmarshal([]byte(out), &answer)).To(Succeed())
		Expect(answer.Question).To(Equal("When are refunds issued?"))
		Expect(answer.Text).To(Equal("Five business days."))
		Expect(answer.Retrieval).NotTo(BeEmpty())
		Expect(strings.Join(ollama.Prompts(), "\n")).To(ContainSubstring("When are refunds issued?"))
	})

	It("chats over piped input", func() {
		out, err := run("When are refunds issued?\n/exit\n", "chat")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Five business days."))
	})

	It("deletes a document from the registry and the index", func() {
		out, err := run("", "search", travelText, "--top-k", "1", "--quiet")
		Expect(err).NotTo(HaveOccurred())
		id := strings.TrimSpace(out)
		Expect(id).NotTo(BeEmpty())

		_, err = run("", "documents", "delete", id)
		Expect(err).NotTo(HaveOccurred())

		_, err = run("", "documents", "show", id)
		Expect(err).To(HaveOccurred())

		out, err = run("", "search", travelText, "--top-k", "5", "--json")
		Expect(err).NotTo(HaveOccurred())
		var output apisearch.Output
		Expect(json.Unmarshal([]byte(out), &output)).To(Succeed())
		for _, r := range output.Results {
			Expect(r.DocumentID).NotTo(Equal(id))
		}
	})

	It("prints the version", func() {
		out, err := run("", "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Version: dev"))
	})
})
