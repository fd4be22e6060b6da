package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/notify-outbox/internal/domain"
	"github.com/kursadbilgin/notify-outbox/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type channelFlags struct {
	channel  string
	provider string
	config   string
}

func settingsCommands(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Edit per-hotel and platform-default provider settings",
	}

	cmd.AddCommand(setHotelCommand(a))
	cmd.AddCommand(setDefaultsCommand(a))
	return cmd
}

func setHotelCommand(a *app) *cobra.Command {
	flags := &channelFlags{}

	cmd := &cobra.Command{
		Use:   "set-hotel <hotel-id>",
		Short: "Set the provider a hotel uses for one channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repository.NewGormSettingsRepo(a.db)
			hotelID := strings.TrimSpace(args[0])

			current, err := currentSettings(cmd.Context(), func(ctx context.Context) (*domain.NotificationSettings, error) {
				return repo.GetHotelSettings(ctx, hotelID)
			})
			if err != nil {
				return err
			}
			current.HotelID = hotelID

			if err := flags.apply(current); err != nil {
				return err
			}
			if err := repo.UpsertHotelSettings(cmd.Context(), current); err != nil {
				return err
			}

			a.logger.Info("hotel notification settings updated",
				zap.String("hotelId", hotelID),
				zap.String("channel", flags.channel),
				zap.String("provider", flags.provider),
			)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func setDefaultsCommand(a *app) *cobra.Command {
	flags := &channelFlags{}

	cmd := &cobra.Command{
		Use:   "set-defaults",
		Short: "Set the platform-default provider for one channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repository.NewGormSettingsRepo(a.db)

			current, err := currentSettings(cmd.Context(), repo.GetPlatformDefaults)
			if err != nil {
				return err
			}

			if err := flags.apply(current); err != nil {
				return err
			}
			if err := repo.UpsertPlatformDefaults(cmd.Context(), current); err != nil {
				return err
			}

			a.logger.Info("platform notification defaults updated",
				zap.String("channel", flags.channel),
				zap.String("provider", flags.provider),
			)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func (f *channelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.channel, "channel", "", "email, sms or push (required)")
	cmd.Flags().StringVar(&f.provider, "provider", "", "provider name, none or platform_default (required)")
	cmd.Flags().StringVar(&f.config, "config", "", "provider config as a JSON object")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("provider")
}

// apply replaces one channel of settings with the flag values.
func (f *channelFlags) apply(settings *domain.NotificationSettings) error {
	channel, err := domain.ParseChannelFromString(f.channel)
	if err != nil {
		return err
	}

	providerName := strings.ToLower(strings.TrimSpace(f.provider))
	if providerName == "" {
		return fmt.Errorf("%w: --provider is required", domain.ErrValidation)
	}

	config, err := parseObject("config", f.config)
	if err != nil {
		return err
	}

	chosen := domain.ChannelSettings{Provider: providerName, Config: config}
	switch channel {
	case domain.ChannelEmail:
		settings.Email = chosen
	case domain.ChannelSMS:
		settings.SMS = chosen
	case domain.ChannelPush:
		settings.Push = chosen
	}
	return nil
}

func currentSettings(ctx context.Context, get func(ctx context.Context) (*domain.NotificationSettings, error)) (*domain.NotificationSettings, error) {
	current, err := get(ctx)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && current == nil) {
		return &domain.NotificationSettings{}, nil
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}
