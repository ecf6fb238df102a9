package main

import (
	"fmt"
	"image/png"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/toastnco/prometheus/art"
)

var renderWelcomeCmd = &cobra.Command{
	Use:   "render-welcome",
	Short: "Render a welcome card to a local PNG file",
	RunE:  renderWelcome,
}

func init() {
	f := renderWelcomeCmd.Flags()
	f.String("name", "Amber Blackfire", "member name")
	f.String("server", "the source code", "guild name")
	f.String("avatar", "", "avatar URL; the default avatar is used when empty or unreachable")
	f.String("out", "test_welcome.png", "output file")
	f.Duration("timeout", 30*time.Second, "avatar download timeout")
}

func renderWelcome(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	name, _ := f.GetString("name")
	server, _ := f.GetString("server")
	avatar, _ := f.GetString("avatar")
	out, _ := f.GetString("out")
	timeout, _ := f.GetDuration("timeout")

	c, err := art.New(art.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return err
	}

	img, err := c.Welcome(cmd.Context(), name, server, avatar)
	if err != nil {
		return err
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
