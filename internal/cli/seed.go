package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

func newSeedCommand(rt *Runtime) *cobra.Command {
	var (
		clientName string
		apptType   string
		company    string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a test appointment for tomorrow and the initial settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, backend := rt.openStore(ctx)
			defer st.Close()
			if backend == "unavailable" {
				return errStoreUnavailable
			}

			now := time.Now().UTC()
			appt, err := st.CreateAppointment(ctx, store.Appointment{
				ClientName: clientName,
				Date:       now.Add(24 * time.Hour).Format(time.RFC3339),
				Type:       apptType,
				Status:     store.StatusConfirmed,
				CreatedAt:  now,
			})
			if err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}

			patch, err := json.Marshal(map[string]string{
				"companyName":  company,
				"systemPrompt": settings.DefaultSystemPrompt,
			})
			if err != nil {
				return err
			}
			if _, err := settings.NewService(st, rt.Logger).Update(ctx, patch); err != nil {
				return fmt.Errorf("initialize settings: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "appointment %s created for %s (%s)\n", appt.ID, appt.Date, backend)
			fmt.Fprintf(out, "settings initialized for %s\n", company)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientName, "client", "Juan Pérez", "client name on the test appointment")
	cmd.Flags().StringVar(&apptType, "type", "Consultoría Tecnológica", "appointment type")
	cmd.Flags().StringVar(&company, "company", "CoreAura AI", "company name written to settings")
	return cmd
}
