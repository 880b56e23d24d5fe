package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/suggestd/internal/ipc"
	"github.com/runger/suggestd/internal/model"
)

var (
	queryCountry string
	queryLang    string
	queryNum     int
	queryChannel string
	queryDebug   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <input>",
	Short: "Request suggestions for an input",
	Long: `Request ranked suggestions from the running daemon.

Examples:
  suggestctl query "new y"
  suggestctl query --channel mobile-web --num 5 "pool lond"
  suggestctl query --debug "new y"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryCountry, "country", "", "user country (default US)")
	queryCmd.Flags().StringVar(&queryLang, "lang", "", "user language (default en)")
	queryCmd.Flags().IntVar(&queryNum, "num", 0, "number of suggestions")
	queryCmd.Flags().StringVar(&queryChannel, "channel", "", "device channel, e.g. desktop-web")
	queryCmd.Flags().BoolVar(&queryDebug, "debug", false, "dump the raw internal response")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	client := ipc.NewClient()
	ctx, cancel := context.WithTimeout(context.Background(), ipc.ControlTimeout)
	defer cancel()

	req := &model.SuggestRequest{
		Input:          strings.Join(args, " "),
		UserCountry:    queryCountry,
		UserLanguage:   queryLang,
		NumSuggestions: queryNum,
		Channel:        model.DeviceChannel(queryChannel),
	}

	if queryDebug {
		resp, err := client.DebugSuggest(ctx, req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	reply, err := client.Suggest(ctx, req)
	if err != nil {
		return err
	}
	if !reply.Success {
		fmt.Println("no suggestions")
		return nil
	}
	for _, s := range reply.Suggestions {
		line := s.Display
		if s.Annotation != "" {
			line += " (" + s.Annotation + ")"
		}
		if s.Child {
			line = "  -> " + line
		}
		fmt.Println(line)
	}
	if reply.EnableInstant {
		fmt.Println("[instant search enabled]")
	}
	return nil
}
