package main

import (
	"context"
	"fmt"

	"github.com/trezcool/madrasa/core"
)

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	if err := cli.accountSvc.ResetPassword(ctx, email, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password updated for %s\n", core.NormalizeEmail(email))
	return nil
}

func (cli *commandLine) setActive(ctx context.Context, email string, active bool) error {
	acc, err := cli.accountSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acc, err = cli.accountSvc.SetActive(ctx, acc, active); err != nil {
		return err
	}
	state := "disabled"
	if acc.IsActive {
		state = "enabled"
	}
	fmt.Fprintf(cli.out, "%s %s\n", acc.Email, state)
	return nil
}
