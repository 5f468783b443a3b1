package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sudo-init-do/bazaar/internal/auth"
	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/marketplace"
	"github.com/sudo-init-do/bazaar/internal/session"
	"github.com/sudo-init-do/bazaar/internal/upload"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// oneArg parses fs and requires exactly one positional argument.
func oneArg(fs *flag.FlagSet, args []string, what string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return fs.Arg(0), nil
}

func cmdSignUp(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.accounts.SignUp(ctx, auth.SignUpRequest{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("Signed up and signed in as %s (%s).\n", u.Email(), u.UID())
	return nil
}

func cmdSignIn(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.accounts.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s).\n", u.Email(), u.UID())
	return nil
}

func cmdSignOut(ctx context.Context, a *app, _ []string) error {
	if err := a.accounts.SignOut(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func cmdWhoAmI(ctx context.Context, a *app, _ []string) error {
	st := a.settled(ctx)
	out := map[string]any{"phase": st.Phase.String()}
	if st.Identity != nil {
		out["uid"] = st.Identity.UID()
		out["email"] = st.Identity.Email()
	}
	if st.Profile != nil {
		out["profile"] = st.Profile
	}
	if st.Phase == session.PhaseProfileError {
		out["note"] = "signed in, but the profile could not be loaded"
	}
	return printJSON(out)
}

func cmdFeed(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "items to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := a.market.Feed(ctx, marketplace.FeedParams{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}
	return printJSON(items)
}

func cmdListing(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("listing", flag.ContinueOnError)
	lang := fs.String("lang", "", "also show a translation into this language")
	id, err := oneArg(fs, args, "listing id")
	if err != nil {
		return err
	}

	l, err := a.market.Listing(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("listing %s not found", id)
	}
	out := map[string]any{
		"listing":    l,
		"main_image": a.market.ImagePolicy().MainImage(*l),
		"available":  l.Available(),
	}
	if seller, err := a.users.PublicProfile(ctx, l.SellerID); err == nil && seller != nil {
		out["seller"] = seller
	}
	if *lang != "" {
		if tr := a.market.Translate(ctx, marketplace.TranslateRequest{
			Title: l.Title, Description: l.Description, TargetLanguage: *lang,
		}); tr != nil {
			out["translation"] = tr
		}
	}
	return printJSON(out)
}

func cmdSell(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("sell", flag.ContinueOnError)
	form := marketplace.ListingForm{}
	fs.StringVar(&form.Title, "title", "", "listing title")
	fs.StringVar(&form.Description, "description", "", "listing description")
	fs.StringVar(&form.Price, "price", "", "price in yen")
	fs.StringVar(&form.Quantity, "quantity", "1", "stock")
	fs.StringVar(&form.Condition, "condition", string(marketplace.ConditionGood), "item condition")
	draft := fs.Bool("draft", false, "save without publishing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, _, err := identity.Require(ctx, a.session); err != nil {
		return err
	}

	files := make([]upload.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		f, err := upload.LoadFile(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	tray := upload.NewTray(a.uploader, a.logger)
	tray.OnChange(func(slots []upload.Slot) {
		done := 0
		for _, s := range slots {
			if !s.Loading {
				done++
			}
		}
		fmt.Fprintf(os.Stderr, "images: %d/%d uploaded\n", done, len(slots))
	})
	if err := tray.Add(ctx, files); err != nil {
		fmt.Fprintf(os.Stderr, "some images were skipped: %v\n", err)
	}

	l, err := a.market.SubmitListing(ctx, form, tray, !*draft)
	if fe, ok := marketplace.AsFieldErrors(err); ok {
		for field, msg := range fe {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
		}
		return errors.New("listing form is invalid")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Listed %q as %s (%s).\n", l.Title, l.ID, auth.ListingPath(l.ID))
	return nil
}

func cmdBuy(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	qty := fs.String("quantity", "1", "how many to buy")
	id, err := oneArg(fs, args, "listing id")
	if err != nil {
		return err
	}

	l, err := a.market.Listing(ctx, id)
	if err != nil {
		return err
	}
	o, err := a.market.Purchase(ctx, l, *qty)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s placed: %d x %q for %d.\n", o.ID, o.Quantity, o.ListingTitle, o.TotalPrice)
	return nil
}

func cmdOrders(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	status := fs.String("status", "all", "only orders with this status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st := marketplace.OrderStatus(*status)
	if st != "all" && !st.Valid() {
		return fmt.Errorf("unknown order status %q", *status)
	}

	views, err := a.market.MyOrderViews(ctx, st)
	if err != nil {
		return err
	}
	return printJSON(views)
}

func cmdOrder(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(flag.NewFlagSet("order", flag.ContinueOnError), args, "order id")
	if err != nil {
		return err
	}
	o, err := a.market.Order(ctx, id)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("order %s not found", id)
	}
	return printJSON(o)
}

func cmdConversations(ctx context.Context, a *app, _ []string) error {
	convs, err := a.messages.Conversations(ctx)
	if err != nil {
		return err
	}
	return printJSON(convs)
}

func cmdThread(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(flag.NewFlagSet("thread", flag.ContinueOnError), args, "user id")
	if err != nil {
		return err
	}
	thread, err := a.messages.Thread(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range thread {
		who := "them"
		if m.Outgoing {
			who = "me"
		}
		fmt.Printf("%s  %-4s  %s\n", m.CreatedAt.Local().Format(time.DateTime), who, m.Content)
	}
	return nil
}

func cmdSend(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errors.New("expected a user id and a message")
	}
	m, err := a.messages.Send(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s.\n", m.ID)
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	id, err := oneArg(flag.NewFlagSet("profile", flag.ContinueOnError), args, "user id")
	if err != nil {
		return err
	}
	p, err := a.users.PublicProfile(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("user %s not found", id)
	}
	return printJSON(p)
}

func cmdTranslate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	to := fs.String("to", "en", "target language")
	id, err := oneArg(fs, args, "listing id")
	if err != nil {
		return err
	}

	l, err := a.market.Listing(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("listing %s not found", id)
	}
	tr := a.market.Translate(ctx, marketplace.TranslateRequest{
		Title: l.Title, Description: l.Description, TargetLanguage: *to,
	})
	if tr == nil {
		fmt.Println("No translation available.")
		return nil
	}
	return printJSON(tr)
}

func cmdSuggest(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	in := marketplace.SuggestionInput{}
	fs.StringVar(&in.Title, "title", "", "listing title")
	fs.StringVar(&in.Description, "description", "", "listing description")
	fs.StringVar(&in.Condition, "condition", "", "item condition")
	lang := fs.String("lang", string(marketplace.LanguageEnglish), "suggestion language (en or ja)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.Language = marketplace.SuggestionLanguage(*lang)
	if !in.HasMinimumInput() {
		return fmt.Errorf("description must be at least %d characters", marketplace.MinDescriptionLength)
	}

	w := marketplace.NewSuggestionWatcher(a.market, marketplace.WithWatcherLogger(a.logger))
	defer w.Close()

	done := make(chan marketplace.SuggestionState, 1)
	w.OnChange(func(st marketplace.SuggestionState) {
		if st.Loading {
			return
		}
		select {
		case done <- st:
		default:
		}
	})
	w.Update(in)

	select {
	case st := <-done:
		if st.Err != nil {
			return st.Err
		}
		return printJSON(st.Suggestions)
	case <-ctx.Done():
		return ctx.Err()
	}
}
