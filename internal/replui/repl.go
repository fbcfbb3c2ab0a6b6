package replui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/totalspectrum/spinc/internal/lexer"
	"github.com/totalspectrum/spinc/internal/token"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "
	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = ".. "
)

// Options configures a REPL run.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Print timing for each evaluation
}

// Start initializes and runs the REPL with the given username and options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	errorTipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType classifies why a command's output is an error.
type ErrorType int

const (
	NoError ErrorType = iota
	ParseError
	RuntimeError
)

type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

type model struct {
	textInput       textinput.Model
	history         []historyEntry
	sess            *session
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter a CON binding, an expression, or a PUB/PRI function"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		sess:      newSession(),
		username:  username,
		spinner:   s,
		options:   options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if brackets, braces, and parentheses are balanced in
// the input, the same heuristic the teacher's REPL uses to decide whether
// to enter multiline mode.
func isBalanced(input string) bool {
	var stack []rune
	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// evalCmd runs one line through sess asynchronously, so the spinner can
// animate while a larger function body compiles.
func evalCmd(input string, sess *session, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res := sess.evalLine(input)
		elapsed := time.Since(start)
		if debug {
			fmt.Printf("DEBUG: evaluation took %v\n", elapsed)
		}
		return evalResultMsg{
			output:    res.output,
			isError:   res.isError,
			errorType: res.errorType,
			elapsed:   elapsed,
		}
	}
}

func (m model) formatError(errorStyle *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(errorStyle.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(errorTipStyle.Render("Tips:" + parts[1]))
		}
		return
	}
	if m.options.NoColor {
		s.WriteString(entry.output)
	} else {
		s.WriteString(errorStyle.Render(entry.output))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false
					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.sess, m.options.Debug)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false
					buffer := m.multilineBuffer
					m.multilineBuffer = ""
					return m, evalCmd(buffer, m.sess, m.options.Debug)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")
			return m, evalCmd(input, m.sess, m.options.Debug)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " spinc Nu bytecode console "))
	s.WriteString("\n")
	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Type a CON binding, an expression, or a PUB/PRI function.\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseError:
				m.formatError(&parseErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(&runtimeErrorStyle, &entry, &s)
			default:
				if m.options.NoColor {
					s.WriteString(entry.output)
				} else {
					s.WriteString(errorStyle.Render(entry.output))
				}
			}
		} else {
			if m.options.NoColor {
				s.WriteString(entry.output)
			} else {
				s.WriteString(resultStyle.Render(entry.output))
			}
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			if m.options.NoColor {
				s.WriteString(timeStr)
			} else {
				s.WriteString(historyStyle.Render(timeStr))
			}
		}
		s.WriteString("\n\n")
	}

	if m.evaluating {
		if m.options.NoColor {
			s.WriteString(Prompt)
		} else {
			s.WriteString(promptStyle.Render(Prompt))
		}
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Compiling...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		if m.options.NoColor {
			s.WriteString("Current multiline input:\n")
		} else {
			s.WriteString(historyStyle.Render("Current multiline input:\n"))
		}
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			if m.options.NoColor {
				m.textInput.Prompt = ContPrompt
			} else {
				m.textInput.Prompt = promptStyle.Render(ContPrompt)
			}
		} else {
			if m.options.NoColor {
				m.textInput.Prompt = Prompt
			} else {
				m.textInput.Prompt = promptStyle.Render(Prompt)
			}
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: empty line evaluates, or keep typing"
	} else {
		helpText += " | Multiline input supported for unbalanced brackets"
	}
	if m.options.NoColor {
		s.WriteString(helpText)
	} else {
		s.WriteString(historyStyle.Render(helpText))
	}

	return s.String()
}

func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Parser Errors:\n")
	for i, msg := range errors {
		fmt.Fprintf(&s, "  %d. %s\n", i+1, msg)
	}
	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing DO/END pairs\n")
	s.WriteString("  • Verify every statement is properly terminated\n")
	s.WriteString("  • Constants must be written as a bare expression, e.g. \"3 + 4\"\n")
	return s.String()
}

func formatRuntimeError(msg string) string {
	var s strings.Builder
	s.WriteString("Error:\n")
	s.WriteString("  " + msg + "\n")
	s.WriteString("\nTips:\n")
	switch {
	case strings.Contains(msg, "not found") || strings.Contains(msg, "undefined"):
		s.WriteString("  • Check if the name is defined before use\n")
	case strings.Contains(msg, "args"):
		s.WriteString("  • Check the call has the expected number of arguments\n")
	default:
		s.WriteString("  • Review the declaration for typos or unsupported syntax\n")
	}
	return s.String()
}

// highlightCode applies syntax highlighting to Spin source, re-keyed to
// internal/token's keyword set in place of Monkey's.
func (m model) highlightCode(code string) string {
	if m.options.NoColor || code == "" {
		return code
	}
	l := lexer.New(code)
	var s strings.Builder

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	for _, t := range tokens {
		switch {
		case t.Type == token.EOF:
			// nothing to render
		case isKeyword(t):
			s.WriteString(keywordStyle.Render(t.Literal))
		case t.Type == token.STRING:
			s.WriteString(stringStyle.Render("\"" + t.Literal + "\""))
		case t.Type == token.INT || t.Type == token.FLOAT:
			s.WriteString(literalStyle.Render(t.Literal))
		case t.Type == token.IDENT:
			s.WriteString(identifierStyle.Render(t.Literal))
		case isDelimiter(t):
			s.WriteString(delimiterStyle.Render(t.Literal))
		case isOperator(t):
			s.WriteString(operatorStyle.Render(t.Literal))
		default:
			s.WriteString(t.Literal)
		}
		s.WriteString(" ")
	}
	return strings.TrimRight(s.String(), " ")
}

func isKeyword(t token.Token) bool {
	switch t.Type {
	case token.CON, token.VAR, token.OBJ, token.PUB, token.PRI, token.DAT,
		token.DO, token.END, token.REPEAT, token.FROM, token.TO, token.STEP,
		token.IF, token.IFNOT, token.ELSE, token.ELSEIF, token.CASE, token.OTHER,
		token.RETURN, token.ABORT, token.QUIT, token.NEXT,
		token.AND, token.OR, token.NOT, token.TRUE, token.FALSE,
		token.ABS, token.SQRT, token.ENCODE, token.DECODE, token.REV,
		token.LIMITMIN, token.LIMITMAX, token.COGINIT, token.LOOKUP, token.LOOKUPZ, token.DEBUG:
		return true
	}
	return false
}

func isOperator(t token.Token) bool {
	switch t.Type {
	case token.ASSIGN, token.CONASSIGN, token.PLUS, token.MINUS, token.ASTERISK, token.SLASH,
		token.MODULUS, token.BANG, token.AMP, token.PIPE, token.CARET,
		token.SHL, token.SHR, token.SAR, token.ROTL, token.ROTR, token.REVOP, token.HIGHMULT,
		token.LT, token.GT, token.LE, token.GE, token.EQ, token.NOT_EQ,
		token.TILDE, token.DOUBLETILDE, token.AT, token.ATAT, token.ATATAT:
		return true
	}
	return false
}

func isDelimiter(t token.Token) bool {
	switch t.Type {
	case token.COMMA, token.COLON, token.SEMICOLON, token.LPAREN, token.RPAREN,
		token.LBRACKET, token.RBRACKET, token.DOTDOT, token.HASH:
		return true
	}
	return false
}
