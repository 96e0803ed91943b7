package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/gofhir/fhir/r4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/gateway/internal/config"
	"github.com/ehr/gateway/internal/itk"
	"github.com/ehr/gateway/internal/outbound"
	"github.com/ehr/gateway/internal/sequence"
)

var (
	okColor   = color.New(color.FgHiGreen, color.Bold)
	failColor = color.New(color.FgHiRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// readInput reads the named file, or stdin for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an ITK SOAP message and print the response document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			renderer, err := itk.NewTemplateRenderer()
			if err != nil {
				return err
			}
			result, err := itk.NewValidator(renderer, zerolog.Nop()).Evaluate(raw)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), failColor.Sprintf("MALFORMED"), err)
				return err
			}

			label := okColor.Sprintf("ACCEPTED")
			if result.Status != http.StatusOK {
				label = failColor.Sprintf("REJECTED")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", label, dimColor.Sprintf("status %d", result.Status))
			fmt.Fprintln(cmd.OutOrStdout(), result.Body)

			if result.Status != http.StatusOK {
				return fmt.Errorf("message rejected with status %d", result.Status)
			}
			return nil
		},
	}
}

func translateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate a FHIR Patient resource into an EDIFACT interchange",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			patient, err := outbound.DecodePatient(data)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateBackend(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			backend, err := openSequenceBackend(ctx, cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			defer backend.close()

			text, err := translate(ctx, backend.counter, patient)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), failColor.Sprintf("FAILED"), err)
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", okColor.Sprintf("TRANSLATED"), dimColor.Sprintf("backend %s", backend.name))
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func translate(ctx context.Context, counter sequence.Counter, patient *r4.Patient) (string, error) {
	translator := outbound.NewInterchangeTranslator(
		sequence.NewGenerators(counter, zerolog.Nop()),
		outbound.NewRegistrationMessageTranslator(),
		nil,
		zerolog.Nop(),
	)
	return translator.Convert(ctx, patient)
}
