package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"sportsmed/internal/domain/account"
	"sportsmed/internal/domain/biometric"
	"sportsmed/internal/domain/consent"
)

// SeedAccount describes one demo account in a fixture file.
type SeedAccount struct {
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	UserType  string   `yaml:"user_type"`
	Metrics   []string `yaml:"metrics"`
	Sharing   bool     `yaml:"data_sharing"`
	Approved  bool     `yaml:"approved"`
}

// SeedFixture is the seed file format.
type SeedFixture struct {
	Days     int           `yaml:"days"`
	Accounts []SeedAccount `yaml:"accounts"`
}

// DefaultSeedFixture returns the built-in demo data: one athlete with a week of
// observations and one approved staff member.
func DefaultSeedFixture() SeedFixture {
	return SeedFixture{
		Days: 7,
		Accounts: []SeedAccount{
			{
				Email: "athlete@sportsmed.example", Password: "athlete-demo",
				FirstName: "Alex", LastName: "Runner", UserType: account.TypeAthlete,
				Metrics: []string{"heart_rate", "steps", "sleep_hours", "calories", "hrv"},
				Sharing: true,
			},
			{
				Email: "staff@sportsmed.example", Password: "staff-demo1",
				FirstName: "Dana", LastName: "Physio", UserType: account.TypeStaff,
				Approved: true,
			},
		},
	}
}

// ParseSeedFixture decodes a YAML fixture.
// PRE: data is YAML
// POST: Days defaults to 7 when unset
func ParseSeedFixture(data []byte) (SeedFixture, error) {
	var f SeedFixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SeedFixture{}, fmt.Errorf("invalid seed fixture: %w", err)
	}
	if f.Days <= 0 {
		f.Days = 7
	}
	return f, nil
}

// AccountStoreForSeed defines the account operations needed by Seed.
type AccountStoreForSeed interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// BiometricStoreForSeed defines the observation writer needed by Seed.
type BiometricStoreForSeed interface {
	Save(ctx context.Context, o biometric.Observation) error
}

// SeedDeps holds dependencies for Seed.
type SeedDeps struct {
	AccountStore   AccountStoreForSeed
	ConsentStore   ConsentStoreForOrchestrator
	BiometricStore BiometricStoreForSeed
	GenerateID     func() string
	Now            func() time.Time
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	AccountsCreated   int
	AccountsSkipped   int
	ConsentsSaved     int
	ObservationsSaved int
}

// ExecuteSeed creates the fixture's accounts, consents and observations.
// PRE: Schema is migrated
// POST: Accounts that already exist are skipped together with their data
// INVARIANT: Observations are only generated for metrics the account consented to
func ExecuteSeed(ctx context.Context, fixture SeedFixture, deps SeedDeps) (SeedResult, error) {
	var res SeedResult
	now := deps.Now()

	for _, sa := range fixture.Accounts {
		if _, err := deps.AccountStore.GetByEmail(ctx, sa.Email); err == nil {
			res.AccountsSkipped++
			continue
		} else if !errors.Is(err, account.ErrNotFound) {
			return res, err
		}

		acct := account.Account{
			ID: deps.GenerateID(), Email: sa.Email, FirstName: sa.FirstName, LastName: sa.LastName,
			UserType: sa.UserType, CreatedAt: now,
		}
		if acct.UserType == "" {
			acct.UserType = account.TypeAthlete
		}
		if err := acct.Validate(); err != nil {
			return res, fmt.Errorf("seed account %s: %w", sa.Email, err)
		}
		if err := acct.SetPassword(sa.Password); err != nil {
			return res, fmt.Errorf("seed account %s: %w", sa.Email, err)
		}
		if sa.Approved {
			if err := acct.SetStaffApproval(true); err != nil {
				return res, fmt.Errorf("seed account %s: %w", sa.Email, err)
			}
		}
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return res, err
		}
		res.AccountsCreated++

		if len(sa.Metrics) == 0 {
			continue
		}
		form := consent.NewForm(true, sa.Sharing, sa.Metrics)
		if err := form.Check(); err != nil {
			return res, fmt.Errorf("seed consent %s: %w", sa.Email, err)
		}
		record := consent.HealthConsent{ID: deps.GenerateID(), UserID: acct.ID}
		record.Grant(form, now)
		if err := deps.ConsentStore.Upsert(ctx, record); err != nil {
			return res, err
		}
		res.ConsentsSaved++

		for day := 0; day < fixture.Days; day++ {
			for i, m := range record.MetricsAllowed {
				cfg := biometric.ConfigFor(m)
				at := now.Add(-time.Duration(day)*24*time.Hour - time.Duration(i)*time.Minute)
				o := biometric.Observation{
					ID: deps.GenerateID(), UserID: acct.ID, MetricType: m,
					Value: SampleValue(m, day), Unit: cfg.Unit,
					RecordedAt: at, DeviceType: "seed", CreatedAt: now,
				}
				if err := deps.BiometricStore.Save(ctx, o); err != nil {
					return res, err
				}
				res.ObservationsSaved++
			}
		}
	}

	slog.Info("seed_event", "event", "seed_complete",
		"accounts_created", res.AccountsCreated, "accounts_skipped", res.AccountsSkipped,
		"consents", res.ConsentsSaved, "observations", res.ObservationsSaved)
	return res, nil
}

// sampleBase is a plausible daily value per metric.
var sampleBase = map[biometric.MetricType]float64{
	biometric.HeartRate:        72,
	biometric.Steps:            8200,
	biometric.Calories:         2300,
	biometric.Distance:         6.4,
	biometric.ActiveEnergy:     540,
	biometric.RestingHeartRate: 58,
	biometric.HRV:              64,
	biometric.BloodOxygen:      98,
	biometric.SleepHours:       7.4,
	biometric.WorkoutMinutes:   45,
	biometric.StandHours:       10,
	biometric.ExerciseMinutes:  38,
}

// SampleValue returns a deterministic value for metric m, day days ago.
// POST: Values stay within the metric's normal range when it has one
func SampleValue(m biometric.MetricType, day int) float64 {
	base := sampleBase[m]
	v := base * (1 + 0.05*math.Sin(float64(day)))
	if r := biometric.ConfigFor(m).NormalRange; r != nil {
		v = math.Max(r.Min, math.Min(r.Max, v))
	}
	return math.Round(v*10) / 10
}
