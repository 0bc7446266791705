package automation

import "testing"

func TestExpandTemplate(t *testing.T) {
	data := map[string]string{
		"name":          "Ada",
		"email":         "ada@example.com",
		"business_name": "Lovelace Ltd",
	}

	tests := []struct {
		name     string
		tmpl     string
		expected string
	}{
		{
			name:     "All Placeholders",
			tmpl:     "Hi {{name}} ({{email}}) from {{business_name}}",
			expected: "Hi Ada (ada@example.com) from Lovelace Ltd",
		},
		{
			name:     "Unknown Placeholder Left Alone",
			tmpl:     "Hi {{nickname}}",
			expected: "Hi {{nickname}}",
		},
		{
			name:     "Case Sensitive",
			tmpl:     "Hi {{Name}}",
			expected: "Hi {{Name}}",
		},
		{
			name:     "No Placeholders",
			tmpl:     "plain text",
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandTemplate(tt.tmpl, data)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestExpandTemplateNotRecursive(t *testing.T) {
	// A value containing a placeholder token is substituted as-is.
	data := map[string]string{
		"name":  "{{email}}",
		"email": "ada@example.com",
	}

	result := ExpandTemplate("{{name}}", data)
	if result != "{{email}}" {
		t.Errorf("Expected literal {{email}}, got %q", result)
	}
}
