// checkoutctl is a CLI tool for exercising the headless checkout gateway.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	checkoutctl order -gateway URL -item ID[:QTY] [-item ...] [-email E] [-first F] [-last L]
//	checkoutctl import -gateway URL -item ID[:QTY] [-item ...]
//	checkoutctl sign -site URL [-secret S] -item ID[:QTY] [-item ...]
//	checkoutctl verify [-secret S] -url URL
//
// Examples:
//
//	PAY=$(checkoutctl order -gateway http://localhost:8080 -item 60:2 -item blue-hoodie -q)
//	checkoutctl import -gateway http://localhost:8080 -item tee
//	checkoutctl sign -site https://shop.example -item 60:2
//	checkoutctl verify -url "$LINK"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"headless-checkout/internal/model"
	"headless-checkout/internal/signing"
)

var client = &http.Client{
	Timeout: 30 * time.Second,
	// Form endpoints answer with 303; show the redirect instead of following it.
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// Global flags (apply to all commands)
var (
	gatewayURL string
	quiet      bool
	noColor    bool
	verbose    bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "order":
		runOrder(args)
	case "import":
		runImport(args)
	case "sign":
		runSign(args)
	case "verify":
		runVerify(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `checkoutctl - headless checkout gateway tool

Usage:
  checkoutctl <command> [options]

Commands:
  order     Create a pending order and print its pay URL
  import    Request a signed cart-import URL from the gateway
  sign      Build a signed cart-import URL locally
  verify    Check the signature of a cart-import URL and print its items

Items:
  -item takes a product ID or slug, optionally followed by :QTY.
  Digits-only values are product IDs, anything else is a slug.

Examples:
  # Create an order and capture the pay URL
  PAY=$(checkoutctl order -gateway http://localhost:8080 -item 60:2 -q)

  # Ask the gateway for a cart-import link
  checkoutctl import -gateway http://localhost:8080 -item blue-hoodie:3

  # Sign and verify links offline (secret from WOO_SHARED_SECRET)
  LINK=$(checkoutctl sign -site https://shop.example -item 60 -q)
  checkoutctl verify -url "$LINK"

Run 'checkoutctl <command> -h' for command-specific options.
`)
}

// =============================================================================
// ITEM FLAGS
// =============================================================================

// itemsFlag collects repeated -item values.
type itemsFlag []model.CartItem

func (f *itemsFlag) String() string {
	parts := make([]string, len(*f))
	for i, it := range *f {
		parts[i] = fmt.Sprintf("%s:%d", it.ID, it.Quantity())
	}
	return strings.Join(parts, ",")
}

func (f *itemsFlag) Set(value string) error {
	item, err := parseItem(value)
	if err != nil {
		return err
	}
	*f = append(*f, item)
	return nil
}

// parseItem parses ID[:QTY]. Missing quantity defaults to 1.
func parseItem(value string) (model.CartItem, error) {
	ref, qtyStr, hasQty := strings.Cut(strings.TrimSpace(value), ":")
	if ref == "" {
		return model.CartItem{}, fmt.Errorf("item %q: missing product id or slug", value)
	}

	qty := 1
	if hasQty {
		n, err := strconv.Atoi(qtyStr)
		if err != nil {
			return model.CartItem{}, fmt.Errorf("item %q: invalid quantity %q", value, qtyStr)
		}
		qty = n
	}

	return model.CartItem{ID: parseItemID(ref), Qty: qty}, nil
}

// parseItemID treats digits-only values as product IDs and everything else as slugs.
func parseItemID(ref string) model.ItemID {
	for _, r := range ref {
		if r < '0' || r > '9' {
			return model.SlugID(ref)
		}
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return model.SlugID(ref)
	}
	return model.NumericID(n)
}

func addCommonFlags(fs *flag.FlagSet) {
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the URL")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

// =============================================================================
// ORDER COMMAND
// =============================================================================

func runOrder(args []string) {
	fs := flag.NewFlagSet("order", flag.ExitOnError)
	fs.StringVar(&gatewayURL, "gateway", "http://localhost:8080", "Checkout gateway base URL")
	var items itemsFlag
	var email, first, last string
	fs.Var(&items, "item", "Product ID or slug with optional :QTY (repeatable, required)")
	fs.StringVar(&email, "email", "", "Buyer email for billing prefill")
	fs.StringVar(&first, "first", "", "Buyer first name")
	fs.StringVar(&last, "last", "", "Buyer last name")
	addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: checkoutctl order -item ID[:QTY] [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	if len(items) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	req := model.CheckoutRequest{Items: items}
	if email != "" || first != "" || last != "" {
		req.Customer = &model.CustomerInfo{Email: email, FirstName: first, LastName: last}
	}

	result, err := doCheckout("/checkout", req)
	if err != nil {
		fatal("Failed to create order: %v", err)
	}

	if quiet {
		fmt.Println(result.URL)
		return
	}
	printSuccess("Order created")
	fmt.Printf("  Pay URL: %s%s%s\n", colorBlue, result.URL, colorReset)
}

// =============================================================================
// IMPORT COMMAND
// =============================================================================

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.StringVar(&gatewayURL, "gateway", "http://localhost:8080", "Checkout gateway base URL")
	var items itemsFlag
	fs.Var(&items, "item", "Product ID or slug with optional :QTY (repeatable, required)")
	addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: checkoutctl import -item ID[:QTY] [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	if len(items) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	result, err := doCheckout("/checkout/cart-import", model.CheckoutRequest{Items: items})
	if err != nil {
		fatal("Failed to create cart-import URL: %v", err)
	}

	if quiet {
		fmt.Println(result.URL)
		return
	}
	printSuccess("Cart-import URL created")
	fmt.Printf("  URL: %s%s%s\n", colorBlue, result.URL, colorReset)
}

// =============================================================================
// SIGN COMMAND
// =============================================================================

func runSign(args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	var site, secret string
	var items itemsFlag
	fs.StringVar(&site, "site", os.Getenv("WOOCOMMERCE_SITE_URL"), "Store base URL")
	fs.StringVar(&secret, "secret", os.Getenv("WOO_SHARED_SECRET"), "Shared signing secret")
	fs.Var(&items, "item", "Product ID or slug with optional :QTY (repeatable)")
	addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: checkoutctl sign -site URL [-secret S] -item ID[:QTY] [options]\n\n")
		fmt.Fprintf(os.Stderr, "Slugs are signed as-is; the store resolves them on import.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	if site == "" || secret == "" {
		fmt.Fprintf(os.Stderr, "Error: -site and -secret (or WOO_SHARED_SECRET) are required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	link, err := signing.SignedCartImportURL(strings.TrimRight(site, "/"), secret, items)
	if err != nil {
		fatal("Failed to sign cart: %v", err)
	}

	if quiet {
		fmt.Println(link)
		return
	}
	printSuccess("Signed %d item(s)", len(items))
	fmt.Printf("  URL: %s%s%s\n", colorBlue, link, colorReset)
}

// =============================================================================
// VERIFY COMMAND
// =============================================================================

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var link, secret string
	fs.StringVar(&link, "url", "", "Cart-import URL to check (required)")
	fs.StringVar(&secret, "secret", os.Getenv("WOO_SHARED_SECRET"), "Shared signing secret")
	addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: checkoutctl verify -url URL [-secret S] [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}

	if link == "" || secret == "" {
		fs.Usage()
		os.Exit(1)
	}

	items, err := signing.ParseCartImportURL(link, secret)
	if err != nil {
		fatal("Invalid cart-import URL: %v", err)
	}

	if quiet {
		data, _ := json.Marshal(items)
		fmt.Println(string(data))
		return
	}
	printSuccess("Signature valid")
	if len(items) == 0 {
		printWarning("Cart is empty")
		return
	}
	fmt.Printf("  %sItems:%s\n", colorYellow, colorReset)
	for _, it := range items {
		kind := "slug"
		if it.ID.IsNumeric() {
			kind = "id"
		}
		fmt.Printf("    - %s%s%s (%s) x%d\n", colorCyan, it.ID, colorReset, kind, it.Qty)
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

// doCheckout posts req to the gateway and decodes the returned URL.
func doCheckout(path string, req model.CheckoutRequest) (*model.CheckoutResult, error) {
	respBody, err := doRequest(http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}

	var result model.CheckoutResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("response has no url")
	}
	return &result, nil
}

func doRequest(method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	reqURL := strings.TrimRight(gatewayURL, "/") + path
	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, describeError(respBody))
	}

	return respBody, nil
}

// describeError extracts "CODE: message" from a gateway error body.
func describeError(body []byte) string {
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Code == "" {
		return strings.TrimSpace(string(body))
	}
	return e.Error.Code + ": " + e.Error.Message
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
