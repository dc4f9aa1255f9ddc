package schema

// Migration is one ordered, versioned set of structural changes. Every
// statement is guarded with IF NOT EXISTS so a migration can be replayed
// against a database holding a partial schema from an earlier failed
// attempt.
type Migration struct {
	Version    string
	Name       string
	Statements []string
}

// Migrations is the current tenant schema, applied in order.
var Migrations = []Migration{
	{
		Version: "0001",
		Name:    "tenant_base_tables",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				email TEXT NOT NULL,
				full_name TEXT NOT NULL,
				hashed_password TEXT NOT NULL,
				role TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				is_admin BOOLEAN NOT NULL DEFAULT false,
				tenant_id TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS ix_users_email ON users (email)`,
			`CREATE TABLE IF NOT EXISTS departments (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS ix_departments_name ON departments (name)`,
			`CREATE TABLE IF NOT EXISTS employees (
				id SERIAL PRIMARY KEY,
				employee_code TEXT NOT NULL,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT,
				department_id INTEGER REFERENCES departments(id),
				position TEXT,
				hire_date DATE,
				salary NUMERIC(10, 2),
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS ix_employees_email ON employees (email)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS ix_employees_employee_code ON employees (employee_code)`,
		},
	},
	{
		Version: "0002",
		Name:    "attendance_and_leave",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS attendance (
				id SERIAL PRIMARY KEY,
				employee_id INTEGER NOT NULL REFERENCES employees(id),
				date DATE NOT NULL,
				check_in TIMESTAMPTZ,
				check_out TIMESTAMPTZ,
				break_start TIMESTAMPTZ,
				break_end TIMESTAMPTZ,
				status TEXT NOT NULL,
				notes TEXT,
				work_summary TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS ix_attendance_employee_date ON attendance (employee_id, date)`,
			`CREATE TABLE IF NOT EXISTS leave_types (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				days_per_year INTEGER NOT NULL DEFAULT 0,
				requires_approval BOOLEAN NOT NULL DEFAULT true
			)`,
			`CREATE TABLE IF NOT EXISTS leave_requests (
				id SERIAL PRIMARY KEY,
				employee_id INTEGER NOT NULL REFERENCES employees(id),
				leave_type TEXT NOT NULL,
				start_date DATE NOT NULL,
				end_date DATE NOT NULL,
				reason TEXT,
				status TEXT NOT NULL DEFAULT 'pending',
				approved_by INTEGER REFERENCES users(id),
				approved_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS ix_leave_requests_employee ON leave_requests (employee_id)`,
		},
	},
	{
		Version: "0003",
		Name:    "organization_settings",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS organization_settings (
				id SERIAL PRIMARY KEY,
				allow_breaks BOOLEAN NOT NULL DEFAULT true,
				require_documentation BOOLEAN NOT NULL DEFAULT false,
				email_notifications_enabled BOOLEAN NOT NULL DEFAULT true,
				inapp_notifications_enabled BOOLEAN NOT NULL DEFAULT true,
				daily_summary_enabled BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS last_login_at TIMESTAMPTZ`,
			`ALTER TABLE attendance ADD COLUMN IF NOT EXISTS is_terrain BOOLEAN NOT NULL DEFAULT false`,
		},
	},
}
