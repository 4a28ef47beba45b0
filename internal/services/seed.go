package services

func strPtr(v string) *string { return &v }

// SampleTodos returns the fixture set loaded by `taskctl seed`.
func SampleTodos() []CreateTodoCommand {
	return []CreateTodoCommand{
		{Title: "Complete project setup", Description: strPtr("Set up the development environment and initialize the project"), Completed: true},
		{Title: "Implement user authentication", Description: strPtr("Add login and registration functionality")},
		{Title: "Create API endpoints", Description: strPtr("Build RESTful API endpoints for CRUD operations")},
		{Title: "Write unit tests", Description: strPtr("Add comprehensive test coverage for the application")},
		{Title: "Deploy to production", Description: strPtr("Set up CI/CD pipeline and deploy the application")},
	}
}
