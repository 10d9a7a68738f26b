package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/ragline/cmd/ragline/init"
	"github.com/papercomputeco/ragline/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	// loadConfig reads config.toml from the local .ragline directory.
	loadConfig := func() *config.Config {
		cfger, err := config.NewConfiger(filepath.Join(tmpDir, ".ragline"))
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return cfg
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	It("creates a .ragline directory with a default config.toml", func() {
		Expect(run()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".ragline"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig()
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Chunking.Size).To(Equal(1000))
		Expect(cfg.LLM.Provider).To(Equal("ollama"))
		Expect(cfg.API.Listen).To(Equal(":8081"))
	})

	It("does not overwrite an existing config without a preset", func() {
		dir := filepath.Join(tmpDir, ".ragline")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[chunking]\nsize = 321\n"), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())
		Expect(loadConfig().Chunking.Size).To(Equal(321))
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with the openai preset", func() {
			Expect(run("--preset", "openai")).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("creates config.toml with the bedrock preset", func() {
			Expect(run("--preset", "bedrock")).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.LLM.Provider).To(Equal("bedrock"))
			Expect(cfg.LLM.Region).To(Equal("us-east-1"))
			Expect(cfg.Embedding.Model).To(Equal("amazon.titan-embed-text-v2:0"))
		})

		It("overwrites an existing config when re-run with a different preset", func() {
			Expect(run("--preset", "openai")).To(Succeed())
			Expect(run("--preset", "anthropic")).To(Succeed())
			Expect(loadConfig().LLM.Provider).To(Equal("anthropic"))
		})

		It("rejects unknown preset names", func() {
			Expect(run("--preset", "invalid-provider")).To(MatchError(ContainSubstring("unknown preset")))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes a remote config.toml with defaults filled in", func() {
			remoteCfg := `version = 0

[llm]
provider = "anthropic"
model = "claude-haiku-4-5-20251001"

[chunking]
size = 600
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.LLM.Provider).To(Equal("anthropic"))
			Expect(cfg.Chunking.Size).To(Equal(600))
			Expect(cfg.Chunking.Overlap).To(Equal(200))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns error for unreachable URL", func() {
			Expect(run("--preset", "http://127.0.0.1:1")).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})
