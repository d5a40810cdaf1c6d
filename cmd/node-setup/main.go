package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const DEFAULT_API_URL = "http://localhost:3536"

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true).
			PaddingLeft(2)

	normalStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

type step int

const (
	stepEnteringAPIURL step = iota
	stepCheckingAPI
	stepEnteringNodeName
	stepCreatingNode
	stepSelectingProfile
	stepSeeding
	stepComplete
)

// profile is a canned set of endpoints and interlocks to seed for a node.
type profile struct {
	Name        string
	Description string
}

var profiles = []profile{
	{Name: "hot-side", Description: "HLT + mash tun: heaters, temp probes, overheat interlocks"},
	{Name: "cold-side", Description: "Fermenter: glycol valve, temp probe, setpoint guard"},
	{Name: "empty", Description: "Register the node only, no endpoints"},
}

type model struct {
	step         step
	apiURL       string
	nodeName     string
	nodeID       string
	cursor       int
	currentInput string
	message      string
	quitting     bool
}

type apiOKMsg struct{}
type nodeCreatedMsg struct{ nodeID string }
type seedDoneMsg struct{}
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func initialModel() model {
	return model{
		step:         stepEnteringAPIURL,
		currentInput: DEFAULT_API_URL,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func checkAPI(apiURL string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(apiURL + "/health")
		if err != nil {
			return errMsg{fmt.Errorf("server not reachable at %s: %w", apiURL, err)}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errMsg{fmt.Errorf("server returned %d from /health", resp.StatusCode)}
		}
		return apiOKMsg{}
	}
}

func postJSON(client *http.Client, url string, payload any) (map[string]interface{}, error) {
	jsonData, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("bad response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s returned %d: %v", url, resp.StatusCode, result)
	}
	return result, nil
}

func createNode(apiURL, name string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 10 * time.Second}

		result, err := postJSON(client, apiURL+"/api/v1/nodes", map[string]string{
			"name": name,
		})
		if err != nil {
			return errMsg{err}
		}

		nodeID, _ := result["id"].(string)
		if nodeID == "" {
			return errMsg{fmt.Errorf("server did not return a node id")}
		}
		return nodeCreatedMsg{nodeID: nodeID}
	}
}

type endpointSeed struct {
	Name      string
	Kind      string
	ValueType string
	Channel   string
	Unit      string
	RangeMin  *float64
	RangeMax  *float64
}

func f(v float64) *float64 { return &v }

func profileEndpoints(name string) []endpointSeed {
	switch name {
	case "hot-side":
		return []endpointSeed{
			{Name: "hlt-heater", Kind: "DO", ValueType: "bool", Channel: "DO1"},
			{Name: "hlt-temp", Kind: "AI", ValueType: "float", Channel: "AI1", Unit: "C", RangeMin: f(0), RangeMax: f(110)},
			{Name: "mash-pump", Kind: "DO", ValueType: "bool", Channel: "DO2"},
			{Name: "mash-temp", Kind: "AI", ValueType: "float", Channel: "AI2", Unit: "C", RangeMin: f(0), RangeMax: f(110)},
			{Name: "hlt-setpoint", Kind: "VIRTUAL", ValueType: "float", Channel: "V1", Unit: "C", RangeMin: f(0), RangeMax: f(100)},
		}
	case "cold-side":
		return []endpointSeed{
			{Name: "glycol-valve", Kind: "DO", ValueType: "bool", Channel: "DO1"},
			{Name: "ferm-temp", Kind: "AI", ValueType: "float", Channel: "AI1", Unit: "C", RangeMin: f(-5), RangeMax: f(40)},
			{Name: "ferm-setpoint", Kind: "VIRTUAL", ValueType: "float", Channel: "V1", Unit: "C", RangeMin: f(-2), RangeMax: f(30)},
		}
	default:
		return nil
	}
}

func seedProfile(apiURL, nodeID, profileName string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 15 * time.Second}

		endpointIDs := map[string]string{}
		for _, e := range profileEndpoints(profileName) {
			payload := map[string]interface{}{
				"node_id":    nodeID,
				"name":       e.Name,
				"kind":       e.Kind,
				"value_type": e.ValueType,
				"channel":    e.Channel,
			}
			if e.Unit != "" {
				payload["unit"] = e.Unit
			}
			if e.RangeMin != nil {
				payload["range_min"] = *e.RangeMin
			}
			if e.RangeMax != nil {
				payload["range_max"] = *e.RangeMax
			}

			result, err := postJSON(client, apiURL+"/api/v1/endpoints", payload)
			if err != nil {
				return errMsg{fmt.Errorf("seeding endpoint %s: %w", e.Name, err)}
			}
			if id, _ := result["id"].(string); id != "" {
				endpointIDs[e.Name] = id
			}
		}

		// Guard heaters behind a setpoint ceiling where the profile has one.
		if profileName == "hot-side" {
			setpointID := endpointIDs["hlt-setpoint"]
			heaterID := endpointIDs["hlt-heater"]
			if setpointID != "" {
				_, err := postJSON(client, apiURL+"/api/v1/interlocks", map[string]interface{}{
					"name":               "hlt-setpoint-ceiling",
					"mode":               "trip",
					"severity":           "critical",
					"priority":           10,
					"affected_endpoints": []string{setpointID},
					"condition":          `{"type":"proposed_range","max":100}`,
				})
				if err != nil {
					return errMsg{fmt.Errorf("seeding interlock: %w", err)}
				}
			}
			if heaterID != "" && endpointIDs["hlt-temp"] != "" {
				_, err := postJSON(client, apiURL+"/api/v1/interlocks", map[string]interface{}{
					"name":               "hlt-overheat-trip",
					"mode":               "trip",
					"severity":           "critical",
					"priority":           20,
					"affected_endpoints": []string{heaterID},
					"condition":          fmt.Sprintf(`{"type":"range","endpoint_id":"%s","max":105}`, endpointIDs["hlt-temp"]),
				})
				if err != nil {
					return errMsg{fmt.Errorf("seeding interlock: %w", err)}
				}
			}
		}

		return seedDoneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.step == stepEnteringAPIURL || m.step == stepEnteringNodeName {
				if msg.String() == "q" {
					m.currentInput += "q"
					return m, nil
				}
			}
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.step == stepSelectingProfile && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.step == stepSelectingProfile && m.cursor < len(profiles)-1 {
				m.cursor++
			}

		case "backspace":
			if len(m.currentInput) > 0 {
				m.currentInput = m.currentInput[:len(m.currentInput)-1]
			}

		default:
			if m.step == stepEnteringAPIURL || m.step == stepEnteringNodeName {
				m.currentInput += msg.String()
			}

		case "enter":
			switch m.step {
			case stepEnteringAPIURL:
				if m.currentInput != "" {
					m.apiURL = strings.TrimRight(m.currentInput, "/")
					m.currentInput = ""
					m.step = stepCheckingAPI
					m.message = "Checking server..."
					return m, checkAPI(m.apiURL)
				}

			case stepEnteringNodeName:
				if m.currentInput != "" {
					m.nodeName = m.currentInput
					m.currentInput = ""
					m.step = stepCreatingNode
					m.message = fmt.Sprintf("Registering node %s...", m.nodeName)
					return m, createNode(m.apiURL, m.nodeName)
				}

			case stepSelectingProfile:
				selected := profiles[m.cursor]
				if selected.Name == "empty" {
					m.step = stepComplete
					m.message = successStyle.Render("✓ Node registered: " + m.nodeID)
					return m, nil
				}
				m.step = stepSeeding
				m.message = fmt.Sprintf("Seeding %s profile...", selected.Name)
				return m, seedProfile(m.apiURL, m.nodeID, selected.Name)

			case stepComplete:
				m.quitting = true
				return m, tea.Quit
			}
		}

	case apiOKMsg:
		m.step = stepEnteringNodeName
		m.message = successStyle.Render("✓ Server reachable")

	case nodeCreatedMsg:
		m.nodeID = msg.nodeID
		m.step = stepSelectingProfile
		m.message = successStyle.Render("✓ Node registered: " + m.nodeID)

	case seedDoneMsg:
		m.step = stepComplete
		m.message = successStyle.Render(fmt.Sprintf("✓ Node %s provisioned!\nConnect the controller to ws://.../ws?node=%s", m.nodeName, m.nodeID))

	case errMsg:
		m.message = errorStyle.Render("✗ " + msg.err.Error())
		switch m.step {
		case stepCheckingAPI:
			m.step = stepEnteringAPIURL
			m.currentInput = m.apiURL
		case stepCreatingNode:
			m.step = stepEnteringNodeName
		case stepSeeding:
			m.step = stepSelectingProfile
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("🍺 BrewOS Node Setup Tool\n\n"))

	switch m.step {
	case stepEnteringAPIURL:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Server URL:\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepCheckingAPI:
		s.WriteString(m.message + "\n")

	case stepEnteringNodeName:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Node name (e.g. brewhouse-1):\n"))
		s.WriteString(inputStyle.Render("> " + m.currentInput))
		s.WriteString("\n\nPress Enter\n")

	case stepCreatingNode:
		s.WriteString(m.message + "\n")

	case stepSelectingProfile:
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render("Select a seed profile:\n\n"))

		for i, p := range profiles {
			cursor := " "
			style := normalStyle
			if m.cursor == i {
				cursor = ">"
				style = selectedStyle
			}
			s.WriteString(fmt.Sprintf("%s %s - %s\n", cursor, style.Render(p.Name), p.Description))
		}

		s.WriteString("\nUse ↑/↓, Enter to seed, ctrl+c to quit\n")

	case stepSeeding:
		s.WriteString(m.message + "\n")

	case stepComplete:
		s.WriteString(m.message + "\n")
		s.WriteString("\nPress Enter to exit\n")
	}

	return s.String()
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
