// Command bearboo is a terminal client for a BearBoo Letters server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/activities"
	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/chat"
	"github.com/pelusa-v/bearboo-letters/internal/codec"
	"github.com/pelusa-v/bearboo-letters/internal/logging"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/prefs"
	"github.com/pelusa-v/bearboo-letters/internal/remote"
)

const help = `commands:
  /typing              show the typing indicator to your partner
  /quiz                today's compatibility questions
  /affirm              send today's affirmation
  /countdown DATE TITLE  share a countdown (DATE as 2006-01-02)
  /scrapbook           list shared photos
  /suggest [CATEGORY]  message ideas for the conversation so far
  /mood [MOOD]         message ideas for how you feel
  /theme NAME          pink, purple, blue, green, yellow or red
  /quit                leave the room`

func main() {
	server := flag.String("server", "http://127.0.0.1:3000", "server address")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	register := flag.Bool("register", false, "create the account first")
	name := flag.String("name", "", "display name for -register")
	room := flag.String("room", "", "room code (defaults to the last room)")
	partner := flag.String("partner", "", "partner user id to pair with instead of a room code")
	passphrase := flag.String("passphrase", "", "shared passphrase (prompted if empty)")
	prefsPath := flag.String("prefs", "", "preferences file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logging.New("development", level)

	if err := run(log, options{
		server: *server, email: *email, password: *password, register: *register,
		name: *name, room: *room, partner: *partner, passphrase: *passphrase, prefsPath: *prefsPath,
	}); err != nil {
		fmt.Fprintln(os.Stderr, apperr.Public(err))
		os.Exit(1)
	}
}

type options struct {
	server, email, password string
	register                bool
	name, room, partner     string
	passphrase, prefsPath   string
}

func run(log zerolog.Logger, o options) error {
	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)

	path := o.prefsPath
	if path == "" {
		p, err := prefs.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	local := prefs.NewStore(path)
	saved, err := local.Load()
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable prefs")
	}

	client := remote.NewClient(o.server)
	if o.register {
		_, err = client.Register(ctx, o.email, o.password, o.name)
	} else {
		_, err = client.Login(ctx, o.email, o.password)
	}
	if err != nil {
		return err
	}
	me := client.CurrentUser()
	fmt.Printf("signed in as %s (%s)\n", me.DisplayName, me.ID)

	roomCode := o.room
	if o.partner != "" {
		p, err := client.Pair(ctx, o.partner)
		if err != nil {
			return err
		}
		roomCode = p.Room
	}
	if roomCode == "" {
		roomCode = saved.Room
	}
	if roomCode == "" {
		return apperr.InvalidArg("Please enter a room code.")
	}
	if _, err := local.SetRoom(roomCode); err != nil {
		log.Warn().Err(err).Msg("could not save room")
	}

	codecName, err := client.Codec(ctx)
	if err != nil {
		return err
	}
	cdc, err := codec.ByName(codecName)
	if err != nil {
		return err
	}

	store, err := remote.DialStore(ctx, client.Base(), client.Token(), log)
	if err != nil {
		return err
	}

	session, err := chat.NewSession(chat.Options{
		Store:      store,
		Auth:       client,
		Codec:      cdc,
		Room:       roomCode,
		Passphrase: o.passphrase,
		Log:        log,
	})
	if err != nil {
		_ = store.Close()
		return err
	}
	defer session.Close(context.Background())

	// the redialer owns the socket from here and closes it on the way out
	redialCtx, stopRedial := context.WithCancel(ctx)
	redialed := make(chan struct{})
	go func() {
		remote.NewRedialer(client, session, store, log).Run(redialCtx)
		close(redialed)
	}()
	defer func() {
		stopRedial()
		<-redialed
	}()

	if err := session.Connect(ctx); err != nil {
		return err
	}
	for session.State() == chat.NeedsPassphrase {
		fmt.Print("passphrase: ")
		if !in.Scan() {
			return nil
		}
		if err := session.ProvidePassphrase(ctx, strings.TrimSpace(in.Text())); err != nil {
			fmt.Println(apperr.Public(err))
		}
	}
	fmt.Printf("joined %s (%s). /help for commands\n", roomCode, saved.Theme)

	r := &renderer{seen: map[string]bool{}}
	go r.run(session)

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := session.Send(ctx, line); err != nil {
				fmt.Println(apperr.Public(err))
			}
			continue
		}
		if quit := command(ctx, line, session, client, local); quit {
			break
		}
	}
	return session.Logout(ctx)
}

func command(ctx context.Context, line string, s *chat.Session, client *remote.Client, local *prefs.Store) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	bank := activities.Default()
	switch cmd {
	case "/quit":
		return true
	case "/help":
		fmt.Println(help)
	case "/typing":
		s.Typing(true)
	case "/quiz":
		partner := "your partner"
		if p := s.View().Partner; p.PartnerOnline {
			partner = "them"
		}
		q, err := client.Questions(ctx, partner, 5)
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		fmt.Println(q.Title)
		for i, question := range q.Questions {
			fmt.Printf("  %d. %s\n", i+1, question)
		}
	case "/affirm":
		a, err := client.Affirmation(ctx)
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		act, err := activities.Share(models.ActivityAffirmation, a)
		if err == nil {
			err = s.SendActivity(ctx, act, a.Text)
		}
		if err != nil {
			fmt.Println(apperr.Public(err))
		}
	case "/countdown":
		date, title, _ := strings.Cut(arg, " ")
		a, err := bank.NewAnniversary("", title, date, "anniversary")
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		text, err := activities.ShareText(a, time.Now())
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		act, err := activities.Share(models.ActivityAnniversary, a)
		if err == nil {
			err = s.SendActivity(ctx, act, text)
		}
		if err != nil {
			fmt.Println(apperr.Public(err))
		}
	case "/suggest":
		if arg == "" {
			printCategories(bank.SuggestionCategories())
			return false
		}
		conv := activities.ConversationOf(s.View().Messages, time.Now())
		ideas, err := client.Suggestions(ctx, arg, conv)
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		printIdeas(ideas)
	case "/mood":
		if arg == "" {
			printCategories(bank.MoodList())
			return false
		}
		ideas, err := client.MoodSuggestions(ctx, arg)
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		printIdeas(ideas)
	case "/scrapbook":
		memories := activities.Scrapbook(s.View().Messages)
		if len(memories) == 0 {
			fmt.Println("no photos yet")
		}
		for _, m := range memories {
			fmt.Printf("  %s from %s, %s\n", m.ImageURL, m.Sender, humanize.Time(time.UnixMilli(m.Timestamp)))
		}
	case "/theme":
		p, err := local.SetTheme(arg)
		if err != nil {
			fmt.Println(apperr.Public(err))
			return false
		}
		if _, err := client.SetTheme(ctx, p.Theme); err != nil {
			fmt.Println(apperr.Public(err))
		}
		fmt.Println("theme set to", p.Theme)
	default:
		fmt.Println(help)
	}
	return false
}

func printCategories(cats []activities.MessageCategory) {
	for _, c := range cats {
		fmt.Printf("  %s %s (%s)\n", c.Emoji, c.Name, c.ID)
	}
}

func printIdeas(ideas []string) {
	for i, idea := range ideas {
		fmt.Printf("  %d. %s\n", i+1, idea)
	}
}

type renderer struct {
	seen    map[string]bool
	partner models.PartnerStatus
	state   chat.State
}

func (r *renderer) run(s *chat.Session) {
	for {
		select {
		case v, ok := <-s.Updates():
			if !ok {
				return
			}
			r.render(v)
		case n, ok := <-s.Notices():
			if !ok {
				return
			}
			fmt.Println("!", n.Message)
		}
	}
}

func (r *renderer) render(v chat.View) {
	if v.State != r.state {
		switch {
		case v.State == chat.Reconnecting:
			fmt.Println("* connection lost, reconnecting")
		case v.State == chat.Active && r.state == chat.Reconnecting:
			fmt.Println("* back online")
		}
		r.state = v.State
	}
	for _, m := range v.Messages {
		if r.seen[m.ID] {
			continue
		}
		r.seen[m.ID] = true
		fmt.Println(formatMessage(m))
	}
	if v.Partner != r.partner {
		switch {
		case v.Partner.PartnerTyping:
			fmt.Println("* partner is typing…")
		case v.Partner.PartnerOnline && !r.partner.PartnerOnline:
			fmt.Println("* partner is online")
		case !v.Partner.PartnerOnline && r.partner.PartnerOnline:
			fmt.Println("* partner went offline")
		}
		r.partner = v.Partner
	}
}

func formatMessage(m models.Message) string {
	who := m.SenderName
	if m.Mine {
		who = "you"
	} else if who == "" {
		who = "partner"
	}
	body := m.Plaintext
	switch m.Kind {
	case models.KindImage:
		body = fmt.Sprintf("[photo %s] %s", m.ImageURL, m.Plaintext)
	case models.KindActivity:
		if m.Activity != nil {
			body = fmt.Sprintf("[%s] %s", m.Activity.Type, m.Plaintext)
		}
	}
	return fmt.Sprintf("%s · %s: %s", humanize.Time(time.UnixMilli(m.CreatedAt)), who, body)
}
