package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/app"
)

func ask(prompt survey.Prompt, out *string) error {
	if err := survey.AskOne(prompt, out, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	*out = strings.TrimSpace(*out)
	return nil
}

func loginCmd(flags *globalFlags) *cobra.Command {
	var username, phone string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username and password, or a phone OTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				auth := env.Flows.Auth
				if phone != "" {
					if err := auth.SendPhoneOTP(ctx, phone); err != nil {
						return fmt.Errorf("send code: %s", api.Message(err))
					}
					var otp string
					if err := ask(&survey.Input{Message: "Code sent to " + phone + ":"}, &otp); err != nil {
						return err
					}
					if err := auth.VerifyPhoneOTP(ctx, phone, otp); err != nil {
						return fmt.Errorf("verify code: %s", api.Message(err))
					}
				} else {
					if username == "" {
						if err := ask(&survey.Input{Message: "Username:"}, &username); err != nil {
							return err
						}
					}
					var password string
					if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
						return err
					}
					if _, err := auth.Login(ctx, api.Credentials{Username: username, Password: password}); err != nil {
						return fmt.Errorf("login: %s", api.Message(err))
					}
				}
				fprintf(cmd.OutOrStdout(), "Signed in as %s\n", env.Stores.Session.Get().DisplayName())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVar(&phone, "phone", "", "sign in with a code sent to this phone number")
	cmd.MarkFlagsMutuallyExclusive("username", "phone")
	return cmd
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				if !env.Stores.Session.Get().SignedIn() {
					fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				if err := env.Flows.Auth.Logout(ctx); err != nil {
					return fmt.Errorf("logout: %w", err)
				}
				fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func registerCmd(flags *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a client account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				auth := env.Flows.Auth
				reg := api.Registration{Email: email}
				if err := ask(&survey.Input{Message: "Phone number:"}, &reg.PhoneNumber); err != nil {
					return err
				}
				if err := askNewPassword(&reg.Password); err != nil {
					return err
				}

				msg, err := auth.Register(ctx, reg)
				if err != nil {
					return fmt.Errorf("register: %s", api.Message(err))
				}
				out := cmd.OutOrStdout()
				if msg != "" {
					fprintln(out, msg)
				}

				for {
					var otp string
					if err := ask(&survey.Input{Message: "Code from the email (\"resend\" to send again):"}, &otp); err != nil {
						return err
					}
					if strings.EqualFold(otp, "resend") {
						if err := auth.ResendVerification(ctx); err != nil {
							return fmt.Errorf("resend: %s", api.Message(err))
						}
						fprintln(out, "Code sent again")
						continue
					}
					if err := auth.VerifyEmail(ctx, otp); err != nil {
						fprintf(cmd.ErrOrStderr(), "verify: %s\n", api.Message(err))
						continue
					}
					break
				}
				fprintln(out, "Account verified. Sign in with washbook login.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func resetPasswordCmd(flags *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password with an emailed code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				auth := env.Flows.Auth
				out := cmd.OutOrStdout()

				msg, err := auth.RequestPasswordReset(ctx, email)
				if err != nil {
					return fmt.Errorf("request reset: %s", api.Message(err))
				}
				if msg != "" {
					fprintln(out, msg)
				}

				var otp string
				if err := ask(&survey.Input{Message: "Code from the email:"}, &otp); err != nil {
					return err
				}
				if _, err := auth.VerifyResetOTP(ctx, otp); err != nil {
					return fmt.Errorf("verify code: %s", api.Message(err))
				}

				var password string
				if err := askNewPassword(&password); err != nil {
					return err
				}
				msg, err = auth.ResetPassword(ctx, email, password)
				if err != nil {
					return fmt.Errorf("reset password: %s", api.Message(err))
				}
				fprintln(out, dashOr(msg, "Password changed"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

var errPasswordMismatch = errors.New("passwords do not match")

// askNewPassword prompts twice for a hidden password.
func askNewPassword(out *string) error {
	var first, second string
	if err := survey.AskOne(&survey.Password{Message: "New password:"}, &first, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	if err := survey.AskOne(&survey.Password{Message: "Repeat password:"}, &second); err != nil {
		return err
	}
	if first != second {
		return errPasswordMismatch
	}
	*out = first
	return nil
}

func profileCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in client's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				if !env.Stores.Session.Get().SignedIn() {
					return errors.New("not signed in; run washbook login")
				}
				res := env.Flows.Auth.Profile(ctx)
				if res.Err != nil && !res.HasData {
					return fmt.Errorf("load profile: %s", api.Message(res.Err))
				}
				out := cmd.OutOrStdout()
				if output != outputTable {
					return encode(out, output, res.Data)
				}
				u := res.Data
				t := newTable(out, "FIELD", "VALUE")
				t.row("Name", dash(u.UserName))
				t.row("Email", dash(u.Mail()))
				t.row("Phone", dash(u.PhoneNumber))
				t.row("Birthday", dash(u.BirthDay))
				t.row("Gender", dash(u.Gender))
				t.row("Location", dash(u.Location))
				t.row("Role", dash(u.Role))
				return t.flush()
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}

func dashOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
