package command

// root.go defines the root command for the shophub console.
// Global flags and session file handling live here.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"shophub/internal/config"
	"shophub/internal/rest"
)

var (
	cfg    *config.Config
	apiURL string // global flag for the back-office API URL
	wsURL  string // global flag for the push channel URL
	role   string // role channel joined for live notifications
	token  string // session token, loaded from the session file
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shophub",
	Short: "shophub - back-office admin console",
	Long: `shophub is a terminal console for the shop back-office API.
Operators can use it to:
- Log in and inspect their profile
- Browse products, categories, brands, orders, suppliers, branches, promotions and customers
- View dashboard statistics aggregated from the fetched lists
- Follow real-time notifications and manage their read state

Use "shophub <command> -h" to see the flags of each command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		os.Exit(1)
	}

	// Global persistent flags = available to all subcommands; environment
	// values set the defaults, flags override them.
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", cfg.APIBaseURL, "back-office API URL")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws", cfg.WSURL, "push channel URL")
	rootCmd.PersistentFlags().StringVar(&role, "role", cfg.RoleChannel, "role channel for live notifications")

	loadSession()
}

// sessionFile is where the login token is kept between invocations.
type sessionFile struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

func sessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shophub-session.json"
	}
	return filepath.Join(home, ".shophub", "session.json")
}

func loadSession() {
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		return // not logged in yet
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return
	}
	if sessionExpired(sf.Token) {
		fmt.Fprintln(os.Stderr, "saved session has expired, log in again")
		return
	}
	token = sf.Token
}

// sessionExpired peeks at the token's exp claim without verifying the
// signature. Only the backend can verify; this just avoids sending requests
// that are guaranteed a 401.
func sessionExpired(t string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func saveSession(t string) error {
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(sessionFile{Token: t, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func clearSession() {
	os.Remove(sessionPath())
	token = ""
}

// newAPIClient builds the REST client with the saved token installed.
func newAPIClient() *rest.Client {
	c := rest.NewClient(apiURL,
		rest.WithTimeout(cfg.APITimeout),
		rest.WithRateLimit(cfg.APIRateLimit, cfg.APIRateBurst),
	)
	if token != "" {
		c.SetToken(token)
	}
	return c
}

// requireToken guards commands that need an authenticated session.
func requireToken() error {
	if token == "" {
		return fmt.Errorf("not logged in: run \"shophub login\" first")
	}
	return nil
}
