// Package view is the terminal front-end. It renders what the gateway
// returns and delegates every business rule to the metrics and sale
// packages.
package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"bhcpharm/m/domain"
	"bhcpharm/m/internal/gateway"
	"bhcpharm/m/internal/metrics"
	"bhcpharm/m/internal/preflight"
	"bhcpharm/m/internal/sale"
	"bhcpharm/m/internal/session"
)

// App drives one interactive session against the pharmacy API.
type App struct {
	session *session.Store
	api     *gateway.Client
	in      *bufio.Scanner
	out     io.Writer

	// last fetched inventory, used to seed the sale builder's stock view
	inventory []domain.InventoryItem
}

func NewApp(store *session.Store, api *gateway.Client, in io.Reader, out io.Writer) *App {
	return &App{session: store, api: api, in: bufio.NewScanner(in), out: out}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// fail renders a gateway failure. A 401 has already cleared the session, so
// the user lands back at the login prompt instead of a crash.
func (a *App) fail(err error) {
	if gateway.IsKind(err, gateway.KindUnauthenticated) {
		a.printf("Session expired. Please log in again.")
		return
	}
	a.printf("Error: %v", err)
}

func (a *App) prompt(label string) (string, bool) {
	fmt.Fprintf(a.out, "%s: ", label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// Run is the main command loop.
func (a *App) Run(ctx context.Context) error {
	a.printf("BHC Pharmacy desk. Type 'help' for commands.")
	for {
		label := "guest"
		if principal, ok := a.session.Principal(); ok {
			label = principal.Username
		}
		line, ok := a.prompt(label)
		if !ok {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			a.help()
		case "login":
			a.login(ctx)
		case "logout":
			a.session.Invalidate()
			a.printf("Logged out.")
		case "dashboard":
			a.dashboard(ctx)
		case "inventory":
			a.listInventory(ctx, strings.Join(args, " "))
		case "save-item":
			a.saveItem(ctx)
		case "delete-item":
			a.deleteItem(ctx, args)
		case "upload-csv":
			a.uploadCSV(ctx, args)
		case "sales":
			a.listSales(ctx)
		case "sale":
			a.saleDialog(ctx)
		case "users":
			a.listUsers(ctx)
		case "register":
			a.registerUser(ctx)
		case "reset-password":
			a.resetPassword(ctx, args)
		case "delete-user":
			a.deleteUser(ctx, args)
		case "activity":
			a.activityLog(ctx)
		case "quit", "exit":
			return nil
		default:
			a.printf("Unknown command %q. Type 'help'.", cmd)
		}
	}
}

func (a *App) help() {
	a.printf(`Commands:
  login / logout
  dashboard                  KPI summary and low stock alerts
  inventory [search]         list inventory
  save-item                  add or edit a medicine (prompts; empty id = new)
  delete-item <id>
  upload-csv <path>          bulk import a catalog file
  sales                      sales history
  sale                       open the new-sale dialog
  users | register | reset-password <id> | delete-user <id>   (admin)
  activity                   activity log (admin)
  quit`)
}

func (a *App) login(ctx context.Context) {
	username, ok := a.prompt("Username")
	if !ok {
		return
	}
	password, ok := a.prompt("Password")
	if !ok {
		return
	}
	principal, err := a.api.Login(ctx, domain.Credentials{Username: username, Password: password})
	if err != nil {
		a.fail(err)
		return
	}
	a.printf("Welcome, %s (%s).", principal.Name, principal.Role)
}

// dashboard prefers the server's summary figures; if that call fails it
// recomputes the same numbers client-side from fresh inventory and sales.
func (a *App) dashboard(ctx context.Context) {
	summary, err := a.api.DashboardSummary(ctx)
	if err != nil {
		if gateway.IsKind(err, gateway.KindUnauthenticated) {
			a.fail(err)
			return
		}
		items, ierr := a.api.ListInventory(ctx, "")
		sales, serr := a.api.ListSalesHistory(ctx)
		if ierr != nil {
			a.fail(ierr)
			return
		}
		if serr != nil {
			a.fail(serr)
			return
		}
		a.inventory = items
		summary = metrics.Summary(items, sales, time.Now())
	}

	a.printf("Total inventory value: %.2f", summary.TotalInventoryValue)
	a.printf("Today's revenue:       %.2f", summary.TodaysRevenue)
	a.printf("Low stock items:       %d", summary.LowStockCount)

	items, err := a.api.ListInventory(ctx, "")
	if err != nil {
		a.fail(err)
		return
	}
	a.inventory = items
	low := metrics.LowStock(items)
	if len(low) == 0 {
		return
	}
	a.printf("\nLow stock alerts:")
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSKU\tSTOCK\tREORDER AT\tEXPIRY")
	for _, item := range low {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", item.Name, item.SKU, item.Quantity, item.ReorderLevel, item.ExpiryDate)
	}
	w.Flush()
}

func (a *App) listInventory(ctx context.Context, search string) {
	items, err := a.api.ListInventory(ctx, search)
	if err != nil {
		a.fail(err)
		return
	}
	a.inventory = items
	now := time.Now()
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSKU\tBATCH\tQTY\tPRICE\tCOST\tEXPIRY\tFLAGS")
	for _, item := range items {
		var flags []string
		if item.IsLowStock() {
			flags = append(flags, "LOW")
		}
		if metrics.IsExpired(item.ExpiryDate, now) {
			flags = append(flags, "EXPIRED")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.2f\t%.2f\t%s\t%s\n",
			item.ID, item.Name, item.SKU, item.BatchNumber, item.Quantity,
			item.UnitPrice, item.CostPrice, item.ExpiryDate, strings.Join(flags, ","))
	}
	w.Flush()
	a.printf("%d item(s).", len(items))
}

func (a *App) saveItem(ctx context.Context) {
	var item domain.InventoryItem
	if raw, ok := a.prompt("Id (empty for new)"); ok && raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			a.printf("Invalid id.")
			return
		}
		item.ID = id
	}
	item.Name, _ = a.prompt("Name")
	item.SKU, _ = a.prompt("SKU")
	item.BatchNumber, _ = a.prompt("Batch number")
	item.Quantity = a.promptInt("Quantity")
	item.UnitPrice = a.promptFloat("Unit price")
	item.CostPrice = a.promptFloat("Cost price")
	item.ReorderLevel = a.promptInt("Reorder level")
	item.ExpiryDate, _ = a.prompt("Expiry date (YYYY-MM-DD)")

	saved, err := a.api.UpsertInventory(ctx, item)
	if err != nil {
		a.fail(err)
		return
	}
	a.printf("Saved %q (id %d).", saved.Name, saved.ID)
}

func (a *App) promptInt(label string) int64 {
	raw, _ := a.prompt(label)
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}

func (a *App) promptFloat(label string) float64 {
	raw, _ := a.prompt(label)
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}

func (a *App) deleteItem(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		a.printf("Usage: delete-item <id>")
		return
	}
	if err := a.api.DeleteInventory(ctx, id); err != nil {
		a.fail(err)
		return
	}
	a.printf("Deleted item %d.", id)
}

func (a *App) uploadCSV(ctx context.Context, args []string) {
	if len(args) != 1 {
		a.printf("Usage: upload-csv <path>")
		return
	}
	file, err := os.Open(args[0])
	if err != nil {
		a.printf("Cannot open %s: %v", args[0], err)
		return
	}
	defer file.Close()

	report, err := preflight.CheckCSV(file)
	if err != nil {
		a.printf("Refusing upload: %v", err)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		a.printf("Cannot rewind %s: %v", args[0], err)
		return
	}
	message, err := a.api.UploadInventoryCSV(ctx, args[0], file)
	if err != nil {
		a.fail(err)
		return
	}
	a.printf("%s (%d row(s), %d skipped client-side)", message, report.Rows, report.Skipped)
}

func (a *App) listSales(ctx context.Context) {
	sales, err := a.api.ListSalesHistory(ctx)
	if err != nil {
		a.fail(err)
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIPT\tDATE\tCUSTOMER\tITEMS\tTOTAL")
	for _, s := range sales {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n", s.ReceiptNumber, s.CreatedAt, s.CustomerName, len(s.Items), s.TotalAmount)
	}
	w.Flush()
	a.printf("%d sale(s). Today's revenue: %.2f", len(sales), metrics.TodaysRevenue(sales, time.Now()))
}

// saleDialog owns one sale draft from open to submit or cancel.
func (a *App) saleDialog(ctx context.Context) {
	items, err := a.api.ListInventory(ctx, "")
	if err != nil {
		a.fail(err)
		return
	}
	a.inventory = items

	builder := sale.NewBuilder()
	builder.UpdateStock(items)
	a.printf("New sale. Commands: add <id>, qty <id> <n>, rm <id>, list, refresh, submit [customer name], cancel")

	for {
		line, ok := a.prompt(fmt.Sprintf("sale %.2f", builder.Total()))
		if !ok {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "add":
			id, ok := parseID(fields[1:])
			if !ok {
				a.printf("Usage: add <id>")
				continue
			}
			item, found := findItem(a.inventory, id)
			if !found {
				a.printf("No inventory item with id %d.", id)
				continue
			}
			if err := builder.AddItem(item); err != nil {
				a.printf("%v (stock: %d)", err, item.Quantity)
				continue
			}
		case "qty":
			if len(fields) != 3 {
				a.printf("Usage: qty <id> <n>")
				continue
			}
			id, err1 := strconv.ParseInt(fields[1], 10, 64)
			qty, err2 := strconv.ParseInt(fields[2], 10, 64)
			if err1 != nil || err2 != nil {
				a.printf("Usage: qty <id> <n>")
				continue
			}
			if err := builder.SetQuantity(id, qty); err != nil {
				a.printf("%v", err)
			}
		case "rm":
			id, ok := parseID(fields[1:])
			if !ok {
				a.printf("Usage: rm <id>")
				continue
			}
			builder.RemoveItem(id)
		case "list":
		case "refresh":
			items, err := a.api.ListInventory(ctx, "")
			if err != nil {
				a.fail(err)
				continue
			}
			a.inventory = items
			builder.UpdateStock(items)
		case "submit":
			customer := strings.TrimSpace(strings.Join(fields[1:], " "))
			committed, err := builder.Submit(ctx, a.api, customer)
			if err != nil {
				if errors.Is(err, sale.ErrEmptySale) {
					a.printf("Please add items to the sale.")
					continue
				}
				// draft is preserved; the user may edit and retry
				a.fail(err)
				continue
			}
			a.printf("Sale completed for %.2f. Receipt %s.", committed.TotalAmount, committed.ReceiptNumber)
			return
		case "cancel":
			builder.Discard()
			return
		default:
			a.printf("Unknown sale command %q.", fields[0])
		}
		a.renderDraft(builder)
	}
}

func (a *App) renderDraft(b *sale.Builder) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMEDICINE\tPRICE\tQTY\tMAX\tSUBTOTAL")
	for _, l := range b.Lines() {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%d\t%.2f\n", l.MedicineID, l.Name, l.UnitPrice, l.Quantity, l.MaxQuantity, float64(l.Quantity)*l.UnitPrice)
	}
	w.Flush()
	a.printf("TOTAL: %.2f", b.Total())
}

func (a *App) listUsers(ctx context.Context) {
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		a.fail(err)
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUSERNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Username, u.Role)
	}
	w.Flush()
}

func (a *App) registerUser(ctx context.Context) {
	var user domain.NewUser
	user.Name, _ = a.prompt("Name")
	user.Username, _ = a.prompt("Username")
	user.Password, _ = a.prompt("Password")
	user.Role, _ = a.prompt("Role (Cashier/Admin)")
	created, err := a.api.RegisterUser(ctx, user)
	if err != nil {
		a.fail(err)
		return
	}
	a.printf("Registered %s (id %d).", created.Username, created.ID)
}

func (a *App) resetPassword(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		a.printf("Usage: reset-password <id>")
		return
	}
	password, _ := a.prompt("New password")
	if err := a.api.ResetPassword(ctx, id, password); err != nil {
		a.fail(err)
		return
	}
	a.printf("Password reset for user %d.", id)
}

func (a *App) deleteUser(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		a.printf("Usage: delete-user <id>")
		return
	}
	if err := a.api.DeleteUser(ctx, id); err != nil {
		a.fail(err)
		return
	}
	a.printf("Deleted user %d.", id)
}

func (a *App) activityLog(ctx context.Context) {
	entries, err := a.api.ListActivityLog(ctx)
	if err != nil {
		a.fail(err)
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tWHO\tACTION\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt, e.Username, e.Action, e.Details)
	}
	w.Flush()
}

func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func findItem(items []domain.InventoryItem, id int64) (domain.InventoryItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.InventoryItem{}, false
}
