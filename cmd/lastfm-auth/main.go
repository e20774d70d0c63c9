// Package main provides the Last.fm authorization helper for scrobbling.
package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/shkh/lastfm-go/lastfm"
)

var (
	app       = kingpin.New("lastfm-auth", "Obtain a Last.fm session key for CloudTune scrobbling")
	apiKey    = app.Flag("api-key", "Last.fm API key").Envar("LASTFM_API_KEY").Required().String()
	apiSecret = app.Flag("api-secret", "Last.fm API secret").Envar("LASTFM_API_SECRET").Required().String()
)

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	api := lastfm.New(*apiKey, *apiSecret)
	token, err := api.GetToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to get token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Please visit the following URL to authorize CloudTune:")
	fmt.Println()
	fmt.Println(authURL(*apiKey, token))
	fmt.Println()
	fmt.Print("Press Enter once you have granted access...")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	if err := api.LoginWithToken(token); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to get session: %v\n", err)
		os.Exit(1)
	}
	sessionKey := api.GetSessionKey()

	fmt.Println()
	fmt.Println("=== Authorization Successful ===")
	fmt.Println()
	fmt.Println("Add this to your playerd.yaml:")
	fmt.Println()
	fmt.Println("lastfm:")
	fmt.Printf("  session_key: %q\n", sessionKey)
	fmt.Println()
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export LASTFM_SESSION_KEY=%q\n", sessionKey)
}

func authURL(apiKey, token string) string {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("token", token)
	return "https://www.last.fm/api/auth/?" + q.Encode()
}
