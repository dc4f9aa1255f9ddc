package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "tenant":
		handleTenant(args)
	case "recover":
		handleRecover(args)
	case "identity":
		handleIdentity(args)
	case "resolve":
		handleResolve(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl tenant <list|show|create|delete|status>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listTenants(args[1:])
	case "show":
		showTenant(args[1:])
	case "create":
		createTenant(args[1:])
	case "delete":
		deleteTenant(args[1:])
	case "status":
		setTenantStatus(args[1:])
	default:
		fmt.Printf("unknown tenant command: %s\n", subCmd)
	}
}

func handleRecover(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl recover <reapply-schema|reseed|reseed-stuck>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "reapply-schema":
		reapplySchema(args[1:])
	case "reseed":
		reseedAdmin(args[1:])
	case "reseed-stuck":
		reseedStuck()
	default:
		fmt.Printf("unknown recover command: %s\n", subCmd)
	}
}

func handleIdentity(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl identity <register>")
		return
	}

	switch args[0] {
	case "register":
		registerIdentity(args[1:])
	default:
		fmt.Printf("unknown identity command: %s\n", args[0])
	}
}

func handleResolve(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl resolve <company|email|id> <value>")
		return
	}

	kind := args[0]
	if len(args) < 2 {
		fmt.Printf("Usage: tenantctl resolve %s <value>\n", kind)
		return
	}
	value := url.PathEscape(args[1])

	switch kind {
	case "company":
		resolveTenant("/api/resolve/company/" + value)
	case "email":
		resolveTenant("/api/resolve/email/" + value)
	case "id":
		resolveTenant("/api/resolve/id/" + value)
	default:
		fmt.Printf("unknown resolve kind: %s\n", kind)
	}
}

// Tenant commands
func listTenants(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	offset := fs.Int("offset", 0, "pagination offset")
	limit := fs.Int("limit", 100, "page size")
	fs.Parse(args)

	path := fmt.Sprintf("/api/tenants?offset=%d&limit=%d", *offset, *limit)
	var tenants []map[string]interface{}
	if !doRequest("GET", path, nil, &tenants) {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tDATABASE\tSTATUS\tCREATED")
	for _, t := range tenants {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			t["id"], t["companyName"], t["databaseName"], t["status"], t["createdAt"])
	}
	w.Flush()
}

func showTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl tenant show <tenant-id>")
		return
	}

	var tenant map[string]interface{}
	if !doRequest("GET", "/api/tenants/"+url.PathEscape(args[0]), nil, &tenant) {
		return
	}
	printJSON(tenant)
}

func createTenant(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "tenant display name")
	company := fs.String("company", "", "company name (unique)")
	email := fs.String("email", "", "admin email")
	fs.Parse(args)

	if *name == "" || *company == "" || *email == "" {
		fmt.Println("Error: name, company, and email are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":        *name,
		"companyName": *company,
		"adminEmail":  *email,
	}

	var result map[string]interface{}
	if !doRequest("POST", "/api/tenants", payload, &result) {
		return
	}

	fmt.Printf("✓ Tenant provisioned: %v\n", result["tenantId"])
	fmt.Printf("  database: %v\n", result["databaseName"])
	fmt.Printf("  admin:    %v\n", result["adminEmail"])
	fmt.Printf("  password: %v  (shown once, store it now)\n", result["initialPassword"])
}

func deleteTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl tenant delete <tenant-id>")
		return
	}

	var result map[string]interface{}
	if !doRequest("DELETE", "/api/tenants/"+url.PathEscape(args[0]), nil, &result) {
		return
	}
	fmt.Printf("✓ Tenant deregistered: %v\n", result["deleted"])
	fmt.Printf("  orphan database %v requires manual cleanup\n", result["orphanDatabase"])
}

func setTenantStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "tenant ID")
	status := fs.String("set", "", "target status (active or inactive); omit to toggle")
	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	var payload interface{}
	if *status != "" {
		payload = map[string]string{"status": *status}
	}
	var tenant map[string]interface{}
	if !doRequest("PUT", "/api/tenants/"+url.PathEscape(*id)+"/status", payload, &tenant) {
		return
	}
	fmt.Printf("✓ Tenant %v is now %v\n", tenant["id"], tenant["status"])
}

// Recovery commands
func reapplySchema(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl recover reapply-schema <tenant-id>")
		return
	}

	var result map[string]interface{}
	if !doRequest("POST", "/api/tenants/"+url.PathEscape(args[0])+"/schema/reapply", nil, &result) {
		return
	}
	fmt.Printf("✓ Schema reapplied for tenant %v\n", result["tenantId"])
}

func reseedAdmin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tenantctl recover reseed <tenant-id>")
		return
	}

	var result map[string]interface{}
	if !doRequest("POST", "/api/tenants/"+url.PathEscape(args[0])+"/admin/reseed", nil, &result) {
		return
	}
	fmt.Printf("✓ Admin %v %v, tenant now %v\n", result["adminEmail"], result["seed"], result["status"])
	fmt.Printf("  password: %v  (shown once, store it now)\n", result["newPassword"])
}

func reseedStuck() {
	var results []map[string]interface{}
	if !doRequest("POST", "/api/recovery/reseed-stuck", nil, &results) {
		return
	}

	if len(results) == 0 {
		fmt.Println("✓ No stuck tenants")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tADMIN\tSEED\tSTATUS\tPASSWORD\tERROR")
	for _, r := range results {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			r["tenantId"], r["adminEmail"], r["seed"], r["status"], r["newPassword"], r["error"])
	}
	w.Flush()
}

// Identity commands
func registerIdentity(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	tenant := fs.String("tenant", "", "tenant ID")
	fs.Parse(args)

	if *email == "" || *tenant == "" {
		fmt.Println("Error: email and tenant are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "tenantId": *tenant}
	var result map[string]interface{}
	if !doRequest("POST", "/api/identities", payload, &result) {
		return
	}
	fmt.Printf("✓ Identity %v -> tenant %v (%v)\n", result["email"], result["tenantId"], result["outcome"])
}

// Resolve commands
func resolveTenant(path string) {
	var info map[string]interface{}
	if !doRequest("GET", path, nil, &info) {
		return
	}
	printJSON(info)
}

// Helper functions
func doRequest(method, path string, payload, out interface{}) bool {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		fmt.Printf("✗ %s %s failed (%d): %v\n", method, path, resp.StatusCode, apiErr["error"])
		return false
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			fmt.Printf("Error: invalid response: %v\n", err)
			return false
		}
	}
	return true
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func getAPIURL() string {
	if url := os.Getenv("TENANTPLANE_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func addAuthHeader(req *http.Request) {
	token := os.Getenv("TENANTPLANE_TOKEN")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`tenantplane CLI

Usage:
  tenantctl <command> [options]

Commands:
  tenant    Tenant operations (list, show, create, delete, status)
  recover   Recovery operations (reapply-schema, reseed, reseed-stuck)
  identity  Login identity mapping (register)
  resolve   Resolve a login identity to a tenant (company, email, id)
  help      Show this help message

Environment Variables:
  TENANTPLANE_API      API endpoint (default: http://localhost:8080)
  TENANTPLANE_TOKEN    Bearer token for operator endpoints

Examples:
  tenantctl tenant create -name "Acme Corp" -company acme -email admin@acme.com
  tenantctl tenant status -id <tenant-id> -set inactive
  tenantctl recover reseed-stuck
  tenantctl resolve email admin@acme.com
`)
}
