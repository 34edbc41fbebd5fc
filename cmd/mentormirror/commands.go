package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/mentormirror/internal/config"
	"github.com/kalambet/mentormirror/internal/pipeline"
	"github.com/kalambet/mentormirror/internal/scrape"
	"github.com/kalambet/mentormirror/internal/style"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze a document and save its author as a mentor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		service, _ := cmd.Flags().GetString("service")
		model, _ := cmd.Flags().GetString("model")
		asJSON, _ := cmd.Flags().GetBool("json")

		res, err := runAnalyze(cmd.Context(), client, pipeline.Request{URL: args[0], ServiceSelector: service, ModelID: model})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}
		fmt.Fprintln(stdout, res.StyleProfile.Describe())
		return nil
	},
}

var stepLabels = map[string]string{
	pipeline.StepScrape:       "Extracting content",
	pipeline.StepInferAuthor:  "Identifying author",
	pipeline.StepAnalyzeStyle: "Profiling writing style",
	pipeline.StepSaveMentor:   "Saving mentor",
}

// runAnalyze streams an analysis and reports each step as it completes.
func runAnalyze(ctx context.Context, client *apiClient, req pipeline.Request) (pipeline.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		result pipeline.Result
		done   bool
	)
	err := client.stream(ctx, "/api/analyze", req, func(data []byte) error {
		var ev pipeline.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decoding event: %w", err)
		}
		switch {
		case ev.Error != "":
			return errors.New(ev.Error)
		case ev.Complete:
			if ev.Data != nil {
				result = *ev.Data
			}
			done = true
			printSuccess("%s", ev.Message)
		case ev.Step != "":
			label := stepLabels[ev.Step]
			if label == "" {
				label = ev.Step
			}
			printStep("%s", label)
		}
		return nil
	})
	if err != nil {
		return pipeline.Result{}, err
	}
	if !done {
		return pipeline.Result{}, errors.New("analysis stream ended without a result")
	}
	return result, nil
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, rewriteCmd, mentorgramCmd, composeCmd} {
		c.Flags().String("service", "", "language model service (openai, google, anthropic, openrouter, ollama)")
		c.Flags().String("model", "", "model id (default: the service's default)")
	}
	analyzeCmd.Flags().Bool("json", false, "print the full result as JSON")
}

// --- rewrite ---

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [text]",
	Short: "Rewrite text in a mentor's style (reads stdin when no text is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textArg(args)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		mentorID, _ := cmd.Flags().GetString("mentor")
		preserve, _ := cmd.Flags().GetBool("preserve-tone")
		service, _ := cmd.Flags().GetString("service")
		model, _ := cmd.Flags().GetString("model")

		out, err := runRewrite(cmd.Context(), client, map[string]any{
			"text":            text,
			"mentorId":        mentorID,
			"preserveTone":    preserve,
			"serviceSelector": service,
			"modelId":         model,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
		return nil
	},
}

func runRewrite(ctx context.Context, client *apiClient, body map[string]any) (string, error) {
	resp, err := client.post(ctx, "/api/rewrite", body)
	if err != nil {
		return "", err
	}
	var out struct {
		RewrittenText string `json:"rewrittenText"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.RewrittenText, nil
}

// textArg returns the single positional argument or, when absent, stdin.
func textArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("text is required: pass it as an argument or on stdin")
	}
	return text, nil
}

func init() {
	rewriteCmd.Flags().String("mentor", "", "mentor id (required)")
	rewriteCmd.Flags().Bool("preserve-tone", false, "keep the original emotional tone")
	rewriteCmd.MarkFlagRequired("mentor")
}

// --- speak ---

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Render text as speech in a mentor's voice",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textArg(args)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		mentorID, _ := cmd.Flags().GetString("mentor")
		out, _ := cmd.Flags().GetString("out")

		n, err := runSpeak(cmd.Context(), client, mentorID, text, out)
		if err != nil {
			return err
		}
		printSuccess("Wrote %d bytes of audio to %s", n, out)
		return nil
	},
}

func runSpeak(ctx context.Context, client *apiClient, mentorID, text, outPath string) (int64, error) {
	resp, err := client.post(ctx, "/api/speech", map[string]string{"text": text, "mentorId": mentorID})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, responseError(resp)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", outPath, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("writing audio: %w", err)
	}
	return n, nil
}

func init() {
	speakCmd.Flags().String("mentor", "", "mentor id (required)")
	speakCmd.Flags().String("out", "speech.mp3", "output file")
	speakCmd.MarkFlagRequired("mentor")
}

// --- mentors ---

type mentorSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
	HasVoice    bool   `json:"hasVoice"`
}

var mentorsCmd = &cobra.Command{
	Use:   "mentors",
	Short: "List or show saved mentors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mentorsListCmd.RunE(cmd, args)
	},
}

var mentorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved mentors",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		mentors, err := listMentors(cmd.Context(), client)
		if err != nil {
			return err
		}
		if len(mentors) == 0 {
			printWarning("No mentors yet. Run `mentormirror analyze <url>` to create one.")
			return nil
		}
		for _, m := range mentors {
			voice := ""
			if m.HasVoice {
				voice = colorize(colorCyan, " (voice)")
			}
			fmt.Fprintf(stdout, "%-28s %s%s\n", m.ID, m.DisplayName, voice)
		}
		return nil
	},
}

func listMentors(ctx context.Context, client *apiClient) ([]mentorSummary, error) {
	resp, err := client.get(ctx, "/api/mentors")
	if err != nil {
		return nil, err
	}
	var mentors []mentorSummary
	if err := decodeJSON(resp, &mentors); err != nil {
		return nil, err
	}
	return mentors, nil
}

var mentorsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a mentor's style profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/mentors/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var m json.RawMessage
		if err := decodeJSON(resp, &m); err != nil {
			return err
		}
		return printJSON(m)
	},
}

func init() {
	mentorsCmd.AddCommand(mentorsListCmd, mentorsShowCmd)
}

// --- mentorgram / compose / prompts ---

var mentorgramCmd = &cobra.Command{
	Use:   "mentorgram <mentor> [topic]",
	Short: "Generate a daily quote, action and reflection from a mentor",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		body := generateBody(cmd, args)
		resp, err := client.post(cmd.Context(), "/api/mentorgram", body)
		if err != nil {
			return err
		}
		var mg style.Mentorgram
		if err := decodeJSON(resp, &mg); err != nil {
			return err
		}
		printMentorgram(mg)
		return nil
	},
}

func printMentorgram(mg style.Mentorgram) {
	fmt.Fprintf(stdout, "%s · %s · %s\n\n", colorize(colorBold, mg.Mentor), mg.Date, mg.Topic)
	fmt.Fprintf(stdout, "%s\n  %s\n\n", colorize(colorCyan, "Quote"), mg.Quote)
	fmt.Fprintf(stdout, "%s\n  %s\n\n", colorize(colorCyan, "Action"), mg.Action)
	fmt.Fprintf(stdout, "%s\n  %s\n", colorize(colorCyan, "Reflection"), mg.Reflection)
}

var composeCmd = &cobra.Command{
	Use:   "compose <mentor> <topic>",
	Short: "Write a new piece on a topic in a mentor's style",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/compose", generateBody(cmd, args))
		if err != nil {
			return err
		}
		var out struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		fmt.Fprintln(stdout, out.Content)
		return nil
	},
}

func generateBody(cmd *cobra.Command, args []string) map[string]string {
	service, _ := cmd.Flags().GetString("service")
	model, _ := cmd.Flags().GetString("model")
	body := map[string]string{
		"mentorId":        args[0],
		"serviceSelector": service,
		"modelId":         model,
	}
	if len(args) > 1 {
		body["topic"] = args[1]
	}
	return body
}

var promptsCmd = &cobra.Command{
	Use:   "prompts <mentor>",
	Short: "Print ready-to-use prompts that carry a mentor's style",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/mentors/"+url.PathEscape(args[0])+"/prompts")
		if err != nil {
			return err
		}
		var kit struct {
			Prompts map[string]string `json:"prompts"`
		}
		if err := decodeJSON(resp, &kit); err != nil {
			return err
		}
		names := make([]string, 0, len(kit.Prompts))
		for name := range kit.Prompts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(stdout, "%s\n%s\n\n", colorize(colorBold, "## "+name), kit.Prompts[name])
		}
		return nil
	},
}

// --- providers ---

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List language model providers and whether they are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		registry, err := newRegistry(cfg, nil)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if service, _ := cmd.Flags().GetString("check"); service != "" {
			model, _ := cmd.Flags().GetString("model")
			printStep("Checking %s...", service)
			reply, err := registry.Check(ctx, service, model)
			if err != nil {
				return err
			}
			printSuccess("%s answered: %s", service, reply)
			return nil
		}

		for _, p := range registry.Providers(ctx) {
			state := colorize(colorYellow, "not configured")
			if p.Configured {
				state = colorize(colorGreen, "configured")
			}
			printStatus(string(p.Service), "%s, default model %s", state, p.DefaultModel)
		}
		return nil
	},
}

func init() {
	providersCmd.Flags().String("check", "", "send a test prompt to this service")
	providersCmd.Flags().String("model", "", "model to use with --check")
}

// --- scrape ---

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Extract a page (and optionally its linked sections) to text files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		discover, _ := cmd.Flags().GetBool("discover")
		limit, _ := cmd.Flags().GetInt("limit")
		outDir, _ := cmd.Flags().GetString("out")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		dir, n, err := scrapeToDir(ctx, scrape.New(), args[0], discover, limit, outDir, time.Now())
		if err != nil {
			return err
		}
		printSuccess("Saved %d file(s) to %s", n, dir)
		return nil
	},
}

// scrapeToDir writes the text of rawURL, and with discover every linked
// same-site section, to <out>/<domain>_<timestamp>/<name>.txt. Sections that
// fail are reported and skipped.
func scrapeToDir(ctx context.Context, ext *scrape.Extractor, rawURL string, discover bool, limit int, out string, now time.Time) (string, int, error) {
	sections := []scrape.Section{{URL: rawURL}}
	if discover {
		found, err := ext.Discover(ctx, rawURL, limit)
		if err != nil {
			return "", 0, err
		}
		sections = found
	}

	dir := filepath.Join(out, scrape.DomainName(rawURL)+"_"+now.Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	written := 0
	used := map[string]int{}
	for _, s := range sections {
		printStep("Extracting %s", s.URL)
		text, err := ext.Extract(ctx, s.URL)
		if err != nil {
			if len(sections) == 1 {
				return dir, 0, err
			}
			printWarning("skipping %s: %v", s.URL, err)
			continue
		}

		name := s.Title
		if name == "" {
			if u, err := url.Parse(s.URL); err == nil {
				name = u.Path
			}
		}
		name = scrape.SafeName(name)
		if used[name]++; used[name] > 1 {
			name = fmt.Sprintf("%s-%d", name, used[name])
		}
		if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(text), 0o644); err != nil {
			return dir, written, err
		}
		written++
	}
	return dir, written, nil
}

func init() {
	scrapeCmd.Flags().Bool("discover", false, "also extract same-site pages linked from the URL")
	scrapeCmd.Flags().Int("limit", 20, "maximum number of pages with --discover")
	scrapeCmd.Flags().String("out", ".", "parent directory for the output folder")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		for _, k := range config.SecretStatus(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:       "unset <key>",
	Short:     "Remove a configuration value so its default applies",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.ValidKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:       "set-secret <key>",
	Short:     "Store a provider API key (read from stdin)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.SecretKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := textArg(nil)
		if err != nil {
			return err
		}
		if err := config.SetSecret(args[0], value); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd, configSetSecretCmd)
}
