// Package raglinecmder
package raglinecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/ragline/cmd/ragline/ask"
	authcmder "github.com/papercomputeco/ragline/cmd/ragline/auth"
	chatcmder "github.com/papercomputeco/ragline/cmd/ragline/chat"
	configcmder "github.com/papercomputeco/ragline/cmd/ragline/config"
	documentscmder "github.com/papercomputeco/ragline/cmd/ragline/documents"
	ingestcmder "github.com/papercomputeco/ragline/cmd/ragline/ingest"
	initcmder "github.com/papercomputeco/ragline/cmd/ragline/init"
	searchcmder "github.com/papercomputeco/ragline/cmd/ragline/search"
	servecmder "github.com/papercomputeco/ragline/cmd/ragline/serve"
	versioncmder "github.com/papercomputeco/ragline/cmd/version"
)

const raglineLongDesc string = `ragline answers questions from your own documents.

Documents are split into overlapping chunks, embedded and stored in a vector
index. Questions are embedded the same way, the nearest chunks are retrieved
and a language model answers from them.

Get started:
  ragline init                      Create a .ragline/ config directory
  ragline ingest ./docs             Index a directory of .txt and .md files
  ragline ask "How do refunds work?"
  ragline chat                      Ask questions interactively
  ragline serve                     Run the HTTP API`

const raglineShortDesc string = "ragline - retrieval augmented question answering"

func NewRaglineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ragline",
		Short:        raglineShortDesc,
		Long:         raglineLongDesc,
		SilenceUsage:  true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .ragline/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(documentscmder.NewDocumentsCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
