package analyze

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tphakala/mediscan/cmd/cliutil"
	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/knowledge"
)

// Command creates the analyze command that classifies one image and stores
// the resulting diagnosis for the user.
func Command(settings *conf.Settings) *cobra.Command {
	var email, password, organ, imagePath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an MRI image",
		Long:  "Log in, classify the image for the given organ and print the stored diagnosis as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			organType, err := knowledge.ParseOrganType(organ)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("error reading image: %w", err)
			}

			ctx := cmd.Context()
			a, err := cliutil.OpenApp(ctx, settings)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit

			sess, err := cliutil.Login(ctx, a, email, password)
			if err != nil {
				return err
			}
			defer cliutil.Logout(ctx, a, sess)

			rec, err := a.Diagnoses.Analyze(ctx, sess, organType, classifier.Image{
				Filename: filepath.Base(imagePath),
				Data:     data,
			})
			if err != nil {
				return err
			}
			return cliutil.PrintJSON(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&organ, "organ", "", "Organ type (brain, breast)")
	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the image file")
	for _, f := range []string{"email", "password", "organ", "image"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
