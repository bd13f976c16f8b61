package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/events"
)

const defaultSeedPassword = "clinic-demo"

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo staff, practitioners and patients into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory {
				return fmt.Errorf("seeding the memory store has no lasting effect; set STORE_DRIVER")
			}
			ctx := context.Background()
			st, _, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svcs := newServices(cfg, st, events.Nop{}, zerolog.Nop())
			n, err := seedDemo(ctx, svcs, password)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d record(s).\n", n)
			return nil
		},
	}
	cmd.Flags().String("password", defaultSeedPassword, "Password for every seeded staff account")
	return cmd
}

// seedDemo creates demo data unless staff accounts already exist. It returns
// the number of records created.
func seedDemo(ctx context.Context, svcs *services, password string) (int, error) {
	ctx = auth.WithUser(ctx, "seed", []string{auth.RoleAdmin})
	if _, total, err := svcs.staff.ListStaff(ctx, 1, 0); err != nil || total > 0 {
		return 0, err
	}

	created := 0
	practitioners := []*identity.Practitioner{
		{Title: "Dr.", FirstName: "Amara", LastName: "Okafor", Specialty: "General Practice"},
		{Title: "Dr.", FirstName: "Lucas", LastName: "Moreau", Specialty: "Cardiology"},
	}
	for _, p := range practitioners {
		if err := svcs.identity.CreatePractitioner(ctx, p); err != nil {
			return created, fmt.Errorf("seed practitioner %s: %w", p.LastName, err)
		}
		created++
	}

	staff := []*identity.Staff{
		{Username: "admin", Name: "Clinic Admin", Roles: []string{auth.RoleAdmin}},
		{Username: "reception", Name: "Front Desk", Roles: []string{auth.RoleReceptionist}},
		{Username: "nurse", Name: "Duty Nurse", Roles: []string{auth.RoleNurse}},
		{Username: "okafor", Name: "Amara Okafor", Roles: []string{auth.RoleDoctor}, PractitionerID: &practitioners[0].ID},
		{Username: "moreau", Name: "Lucas Moreau", Roles: []string{auth.RoleDoctor}, PractitionerID: &practitioners[1].ID},
		{Username: "billing", Name: "Billing Office", Roles: []string{auth.RoleBilling}},
	}
	for _, st := range staff {
		if err := svcs.staff.CreateStaff(ctx, st, password); err != nil {
			return created, fmt.Errorf("seed staff %s: %w", st.Username, err)
		}
		created++
	}

	balance := 500.0
	patients := []*identity.Patient{
		{
			FirstName: "Maria", LastName: "Santos", DateOfBirth: "1986-03-14", Gender: "female",
			Phone: "+1-555-0142",
			Insurance: []identity.Insurance{
				{Provider: "Acme Health", PolicyNumber: "AH-448120", IsPrimary: true, Status: identity.InsuranceActive, Balance: &balance},
			},
		},
		{
			FirstName: "Kenji", LastName: "Watanabe", DateOfBirth: "1952-11-02", Gender: "male",
			Phone: "+1-555-0177", Allergies: []string{"penicillin"},
		},
	}
	for _, p := range patients {
		if err := svcs.identity.RegisterPatient(ctx, p); err != nil {
			return created, fmt.Errorf("seed patient %s: %w", p.LastName, err)
		}
		created++
	}
	return created, nil
}
