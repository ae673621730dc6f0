package service

import "github.com/noah-isme/enrollment-api/internal/dispatch"

// RegisterHandlers binds every student and course message to its handler.
func RegisterHandlers(reg *dispatch.Registry, commands *StudentCommandService, queries *StudentQueryService) {
	dispatch.HandleCommandResult(reg, commands.Register)
	dispatch.HandleCommand(reg, commands.Unregister)
	dispatch.HandleCommand(reg, commands.Enroll)
	dispatch.HandleCommand(reg, commands.Transfer)
	dispatch.HandleCommand(reg, commands.Disenroll)
	dispatch.HandleCommand(reg, commands.EditPersonalInfo)

	dispatch.HandleQuery(reg, queries.GetList)
	dispatch.HandleQuery(reg, queries.GetStudent)
	dispatch.HandleQuery(reg, queries.ListCourses)
}
