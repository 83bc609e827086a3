package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rohmanhakim/nps-explorer/internal/site"
)

const (
	statePrompt  = `Enter a state name (e.g. Michigan, michigan) or "exit": `
	choicePrompt = `Choose the number for detail search or "exit" or "back": `
)

var rule = strings.Repeat("-", 35)

// StateCatalog is what the session needs from the site catalog.
type StateCatalog interface {
	LookupState(ctx context.Context, input string) (string, bool, error)
	SitesForState(ctx context.Context, stateURL string) ([]site.Site, error)
}

// PlaceFinder is what the session needs from the enrichment client.
type PlaceFinder interface {
	NearbyPlaces(ctx context.Context, origin site.Site) ([]site.Site, error)
}

type sessionState int

const (
	awaitingState sessionState = iota
	awaitingChoice
	finished
)

/*
Session is the interactive loop: pick a state, list its sites, then pick a
site by number to list places near it.

Input errors re-prompt. Operation errors are printed and the loop returns to
the state prompt. End of input finishes the session like "exit".
*/
type Session struct {
	catalog StateCatalog
	places  PlaceFinder
	in      *bufio.Scanner
	out     io.Writer

	sites []site.Site
}

func NewSession(catalog StateCatalog, places PlaceFinder, in io.Reader, out io.Writer) *Session {
	return &Session{
		catalog: catalog,
		places:  places,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// Run drives the loop until the user exits, input ends or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	state := awaitingState
	for state != finished {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch state {
		case awaitingState:
			state = s.chooseState(ctx)
		case awaitingChoice:
			state = s.chooseSite(ctx)
		}
	}
	return nil
}

func (s *Session) chooseState(ctx context.Context) sessionState {
	entry, ok := s.readLine(statePrompt)
	if !ok {
		return finished
	}
	input := strings.ToLower(strings.TrimSpace(entry))
	if input == "exit" {
		s.bye()
		return finished
	}

	stateURL, found, err := s.catalog.LookupState(ctx, input)
	if err != nil {
		s.printFailure(err)
		return awaitingState
	}
	if !found {
		fmt.Fprintf(s.out, "\n[Error] Enter proper state name\n")
		return awaitingState
	}

	sites, err := s.catalog.SitesForState(ctx, stateURL)
	if err != nil {
		s.printFailure(err)
		return awaitingState
	}
	s.sites = sites
	s.printList(fmt.Sprintf("List of national sites in %s", entry), sites)
	return awaitingChoice
}

func (s *Session) chooseSite(ctx context.Context) sessionState {
	entry, ok := s.readLine(choicePrompt)
	if !ok {
		return finished
	}
	option := strings.ToLower(strings.TrimSpace(entry))
	switch option {
	case "exit":
		s.bye()
		return finished
	case "back":
		return awaitingState
	}

	index, valid := parseChoice(entry, len(s.sites))
	if !valid {
		fmt.Fprintf(s.out, "\nError: %s\n", choicePrompt)
		return awaitingChoice
	}

	chosen := s.sites[index-1]
	places, err := s.places.NearbyPlaces(ctx, chosen)
	if err != nil {
		s.printFailure(err)
		return awaitingState
	}
	s.printList(fmt.Sprintf("Places near %s", chosen.Name), places)
	return awaitingChoice
}

// parseChoice accepts only plain digits naming an item of the current list.
func parseChoice(entry string, count int) (int, bool) {
	if entry == "" {
		return 0, false
	}
	for _, r := range entry {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(entry)
	if err != nil || index < 1 || index > count {
		return 0, false
	}
	return index, true
}

func (s *Session) readLine(prompt string) (string, bool) {
	fmt.Fprintf(s.out, "\n%s", prompt)
	if !s.in.Scan() {
		fmt.Fprintln(s.out)
		s.bye()
		return "", false
	}
	return strings.TrimRight(s.in.Text(), "\r"), true
}

func (s *Session) printList(header string, sites []site.Site) {
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out, header)
	fmt.Fprintln(s.out, rule)
	for i, item := range sites {
		fmt.Fprintf(s.out, "[%d] %s\n", i+1, item.Info())
	}
}

func (s *Session) printFailure(err error) {
	fmt.Fprintf(s.out, "\n[Error] %s\n", err.Error())
}

func (s *Session) bye() {
	fmt.Fprintf(s.out, "\nBye!\n")
}
