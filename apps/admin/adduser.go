package main

import (
	"context"
	"fmt"

	"github.com/trezcool/madrasa/core/account"
)

// addUser creates an account.
func (cli *commandLine) addUser(ctx context.Context, email, name string, role account.Role, pwd string) error {
	acc, err := cli.accountSvc.Create(ctx, account.NewAccount{
		Email:       email,
		DisplayName: name,
		Role:        role,
		Password:    pwd,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s account %s (%s)\n", acc.Role, acc.Email, acc.ID)
	return nil
}
