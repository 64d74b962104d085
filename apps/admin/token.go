package main

import (
	"fmt"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) token(teacherID string, admin bool) error {
	usr := user.User{
		ID:       teacherID,
		Username: "teacher" + teacherID,
		Roles:    []string{user.RoleTeacher},
	}
	if admin {
		usr.Roles = append(usr.Roles, user.RoleAdmin)
	}

	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}
