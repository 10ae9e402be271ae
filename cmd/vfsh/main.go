package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/vfsboot/internal/aibridge"
	"github.com/standardbeagle/vfsboot/internal/autosave"
	"github.com/standardbeagle/vfsboot/internal/config"
	"github.com/standardbeagle/vfsboot/internal/dispatcher"
	"github.com/standardbeagle/vfsboot/internal/history"
	"github.com/standardbeagle/vfsboot/internal/session"
)

func main() {
	app := &cli.App{
		Name:                   "vfsh",
		Usage:                  "Interactive development shell over a layered in-memory VFS",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"C"},
				Usage:   "Directory containing .vfsh.kdl",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Host directory to mount at /src on startup",
			},
			&cli.StringFlag{
				Name:    "command",
				Aliases: []string{"c"},
				Usage:   "Execute a single command line and exit",
			},
		},
		ArgsUsage: "[script]",
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadKDL(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg, os.Getenv)

	sess := session.New(cfg)
	defer func() { _ = sess.Mounts.CloseAll() }()

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		// History is a convenience, not a requirement; keep going.
		hist = nil
	}

	tracker := autosave.NewTracker(sess.Store, cfg.AutosaveIdleSeconds, cfg.AutosaveCrashSeconds)
	tracker.Start()
	defer tracker.Stop()

	bridge := newBridge(cfg)
	d := dispatcher.New(sess, tracker, hist, bridge)

	if root := c.String("root"); root != "" {
		if err := sess.Mounts.MountHost("/src", root, 0); err != nil {
			fmt.Fprintf(os.Stderr, "mount %s: %v\n", root, err)
		}
	}
	mountUppDirs(sess, os.Getenv("UPP"))

	if line := c.String("command"); line != "" {
		res, err := d.Run(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
		fmt.Print(res.Output)
		return nil
	}

	if c.Args().Len() > 0 {
		return runScript(d, c.Args().First())
	}
	return repl(d)
}

// mountUppDirs mounts every directory from the colon-separated UPP list
// under /upp, per spec.md §6.2.
func mountUppDirs(sess *session.Session, upp string) {
	for _, dir := range strings.Split(upp, ":") {
		if dir == "" {
			continue
		}
		target := "/upp/" + filepath.Base(dir)
		if err := sess.Mounts.MountHost(target, dir, 0); err != nil {
			fmt.Fprintf(os.Stderr, "mount %s: %v\n", dir, err)
		}
	}
}

func runScript(d *dispatcher.Dispatcher, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res, err := d.Run(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Print(res.Output)
		if res.ExitRequested {
			break
		}
	}
	return scanner.Err()
}

func repl(d *dispatcher.Dispatcher) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("vfsh> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := d.Run(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Print(res.Output)
		if res.ExitRequested {
			return nil
		}
	}
}

// newBridge wires the AI cache with a provider picked per spec.md §6.2:
// CODEX_AI_PROVIDER forces a choice, otherwise llama is used when its
// URL is configured and no OpenAI key is present.
func newBridge(cfg *config.Config) *aibridge.Bridge {
	provider := cfg.AIProvider
	llamaURL := firstEnv("LLAMA_BASE_URL", "LLAMA_SERVER", "LLAMA_URL")
	if provider == "" {
		if llamaURL != "" && os.Getenv("OPENAI_API_KEY") == "" {
			provider = "llama"
		} else {
			provider = "openai"
		}
	}
	home, _ := os.UserHomeDir()
	cacheDir := aibridge.DefaultCacheDir(home, provider)

	var call aibridge.Provider
	switch provider {
	case "llama":
		call = llamaProvider(llamaURL, os.Getenv("LLAMA_MODEL"))
	default:
		call = openaiProvider(os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	}
	return aibridge.New(cacheDir, call)
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// chatCompletion posts an OpenAI-compatible chat request, the wire shape
// both back-ends of spec.md §6.2 speak.
func chatCompletion(baseURL, apiKey, model, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(baseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai backend returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai backend returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func openaiProvider(baseURL, apiKey, model string) aibridge.Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return func(prompt string) (string, error) {
		if apiKey == "" {
			return "", fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return chatCompletion(baseURL, apiKey, model, prompt)
	}
}

func llamaProvider(baseURL, model string) aibridge.Provider {
	return func(prompt string) (string, error) {
		if baseURL == "" {
			return "", fmt.Errorf("no llama server configured (LLAMA_BASE_URL)")
		}
		return chatCompletion(baseURL, "", model, prompt)
	}
}
