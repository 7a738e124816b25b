package command

import (
	"fmt"
	"strconv"
	"strings"

	"chuck/internal/logging"
)

// Result holds the commands and failures found in one response, in
// response order.
type Result struct {
	Commands []Command
	Failures []ParseFailure
}

// allKinds is every recognized command name.
var allKinds = []Kind{
	KindSpawnWorker,
	KindKillWorker,
	KindCreateRegister,
	KindConsolidateRegisters,
	KindDeleteRegister,
	KindGrantRegisterLock,
	KindForceReleaseRegisterLock,
	KindSendMessage,
	KindRequestRegisterLock,
	KindReleaseRegisterLock,
	KindMessageManager,
}

// Parse extracts the commands allowed in phase from a model response.
// Lines without a command name are ignored.
func Parse(phase Phase, response string) Result {
	var res Result
	for i, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		kind, end, ok := findKind(line)
		if !ok {
			logging.ParseDebug("Ignoring line %d: %q", i+1, line)
			continue
		}

		cmd, err := parseLine(phase, kind, line[end:])
		if err != nil {
			failure := ParseFailure{Line: i + 1, Kind: kind, Text: line, Reason: err.Error()}
			logging.ParseWarn("Parse failure in %s phase: %v", phase, failure)
			res.Failures = append(res.Failures, failure)
			continue
		}
		res.Commands = append(res.Commands, cmd)
	}
	return res
}

// findKind returns the earliest (then longest) command name in line and
// the offset just past it.
func findKind(line string) (Kind, int, bool) {
	best, bestAt := Kind(""), -1
	for _, k := range allKinds {
		at := strings.Index(line, string(k))
		if at < 0 {
			continue
		}
		if bestAt < 0 || at < bestAt || (at == bestAt && len(k) > len(best)) {
			best, bestAt = k, at
		}
	}
	if bestAt < 0 {
		return "", 0, false
	}
	return best, bestAt + len(best), true
}

func parseLine(phase Phase, kind Kind, rest string) (Command, error) {
	if !phase.Allows(kind) {
		return nil, fmt.Errorf("not available in the %s phase", phase)
	}
	args, err := splitArgs(rest)
	if err != nil {
		return nil, err
	}
	return build(kind, args)
}

type arg struct {
	value  string
	list   []string
	isList bool
}

func splitArgs(rest string) ([]arg, error) {
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return nil, fmt.Errorf("missing '('")
	}
	closing := strings.LastIndexByte(rest, ')')
	if closing < open {
		return nil, fmt.Errorf("missing ')'")
	}

	inner := rest[open+1 : closing]
	if strings.TrimSpace(inner) == "" {
		return nil, nil
	}

	parts, err := splitTopLevel(inner)
	if err != nil {
		return nil, err
	}

	args := make([]arg, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, "[") {
			args = append(args, arg{value: unquote(p)})
			continue
		}
		if !strings.HasSuffix(p, "]") {
			return nil, fmt.Errorf("malformed list %q", p)
		}
		body := p[1 : len(p)-1]
		a := arg{isList: true}
		if strings.TrimSpace(body) != "" {
			items, err := splitTopLevel(body)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				v := unquote(item)
				if v == "" {
					return nil, fmt.Errorf("empty list element in %q", p)
				}
				a.list = append(a.list, v)
			}
		}
		args = append(args, a)
	}
	return args, nil
}

// splitTopLevel splits on commas outside quotes and brackets. A quote only
// opens at the start of an element, so apostrophes inside bare words are
// literal. A closed quote may only be followed by whitespace, a comma or ']'.
func splitTopLevel(s string) ([]string, error) {
	var (
		parts   []string
		current strings.Builder
		quote   rune
		escaped bool
		depth   int
		atStart = true
		closed  bool
	)
	for _, r := range s {
		if closed {
			switch r {
			case ' ', '\t':
				current.WriteRune(r)
				continue
			case ',', ']':
				closed = false
			default:
				return nil, fmt.Errorf("unexpected %q after quoted argument", r)
			}
		}
		switch {
		case quote != 0:
			current.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
				closed = true
			}
			continue
		case r == ',' && depth == 0:
			parts = append(parts, current.String())
			current.Reset()
			atStart = true
			continue
		case (r == '"' || r == '\'') && atStart:
			quote = r
		case r == '[':
			depth++
			current.WriteRune(r)
			atStart = true
			continue
		case r == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ']'")
			}
		}
		current.WriteRune(r)
		if r != ' ' && r != '\t' {
			atStart = false
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unterminated list")
	}
	return append(parts, current.String()), nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		q := string(s[0])
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\`+q, q)
		return strings.TrimSpace(s)
	}
	return s
}

func build(kind Kind, args []arg) (Command, error) {
	switch kind {
	case KindSpawnWorker:
		v, err := scalars(args, "goal")
		if err != nil {
			return nil, err
		}
		return SpawnWorker{Goal: v[0]}, nil

	case KindKillWorker:
		v, err := scalars(args, "name")
		if err != nil {
			return nil, err
		}
		return KillWorker{Name: v[0]}, nil

	case KindCreateRegister:
		if len(args) == 3 {
			v, err := scalars(args, "name", "description", "capacity")
			if err != nil {
				return nil, err
			}
			capacity, err := strconv.Atoi(v[2])
			if err != nil || capacity <= 0 {
				return nil, fmt.Errorf("capacity must be a positive integer, got %q", v[2])
			}
			return CreateRegister{Name: v[0], Description: v[1], Capacity: capacity}, nil
		}
		v, err := scalars(args, "name", "description")
		if err != nil {
			return nil, err
		}
		return CreateRegister{Name: v[0], Description: v[1]}, nil

	case KindConsolidateRegisters:
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 arguments (names, new_name), got %d", len(args))
		}
		if !args[0].isList {
			return nil, fmt.Errorf("names must be a [list]")
		}
		if len(args[0].list) == 0 {
			return nil, fmt.Errorf("names must not be empty")
		}
		v, err := scalars(args[1:], "new_name")
		if err != nil {
			return nil, err
		}
		return ConsolidateRegisters{Sources: args[0].list, NewName: v[0]}, nil

	case KindDeleteRegister:
		v, err := scalars(args, "name")
		if err != nil {
			return nil, err
		}
		return DeleteRegister{Name: v[0]}, nil

	case KindGrantRegisterLock:
		v, err := scalars(args, "register", "worker")
		if err != nil {
			return nil, err
		}
		return GrantRegisterLock{Register: v[0], Worker: v[1]}, nil

	case KindForceReleaseRegisterLock:
		v, err := scalars(args, "register")
		if err != nil {
			return nil, err
		}
		return ForceReleaseRegisterLock{Register: v[0]}, nil

	case KindSendMessage:
		v, err := scalars(args, "worker", "text")
		if err != nil {
			return nil, err
		}
		return SendMessage{Worker: v[0], Text: v[1]}, nil

	case KindRequestRegisterLock:
		v, err := scalars(args, "register", "reason")
		if err != nil {
			return nil, err
		}
		return RequestRegisterLock{Register: v[0], Reason: v[1]}, nil

	case KindReleaseRegisterLock:
		v, err := scalars(args, "register")
		if err != nil {
			return nil, err
		}
		return ReleaseRegisterLock{Register: v[0]}, nil

	case KindMessageManager:
		v, err := scalars(args, "text")
		if err != nil {
			return nil, err
		}
		return MessageManager{Text: v[0]}, nil
	}
	return nil, fmt.Errorf("unknown command %q", kind)
}

// scalars checks arity and returns the non-empty scalar values.
func scalars(args []arg, names ...string) ([]string, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("want %d argument(s) (%s), got %d", len(names), strings.Join(names, ", "), len(args))
	}
	out := make([]string, len(args))
	for i, a := range args {
		if a.isList {
			return nil, fmt.Errorf("%s must not be a list", names[i])
		}
		if a.value == "" {
			return nil, fmt.Errorf("%s must not be empty", names[i])
		}
		out[i] = a.value
	}
	return out, nil
}
