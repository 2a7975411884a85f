package attendance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ThresholdRule - пороговое значение для ключевого слова или кода предмета.
type ThresholdRule struct {
	Keyword   string
	Threshold float64
}

// CustomThresholds хранит правила в порядке объявления:
// при поиске по ключевому слову выигрывает первое совпадение.
type CustomThresholds []ThresholdRule

type Thresholds struct {
	Default    float64          `yaml:"default" json:"default"`
	SafeBuffer float64          `yaml:"safe_buffer" json:"safe_buffer"`
	Custom     CustomThresholds `yaml:"custom" json:"custom"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Default:    75,
		SafeBuffer: 10,
	}
}

// ResolveThreshold: точный код в custom > первое ключевое слово,
// входящее в название без учёта регистра > default.
func ResolveThreshold(code, name string, t Thresholds) float64 {
	if code != "" {
		for _, rule := range t.Custom {
			if rule.Keyword == code {
				return rule.Threshold
			}
		}
	}

	if name != "" {
		upperName := strings.ToUpper(name)
		for _, rule := range t.Custom {
			if rule.Keyword == "" {
				continue
			}
			if strings.Contains(upperName, strings.ToUpper(rule.Keyword)) {
				return rule.Threshold
			}
		}
	}

	return t.Default
}

func (c *CustomThresholds) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*c = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("custom: ожидался словарь ключевое_слово: порог, получено %v", value.Kind)
	}

	rules := make(CustomThresholds, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var keyword string
		if err := value.Content[i].Decode(&keyword); err != nil {
			return fmt.Errorf("custom: ключ: %w", err)
		}
		var threshold float64
		if err := value.Content[i+1].Decode(&threshold); err != nil {
			return fmt.Errorf("custom[%s]: %w", keyword, err)
		}
		rules = append(rules, ThresholdRule{Keyword: keyword, Threshold: threshold})
	}

	*c = rules
	return nil
}

func (c CustomThresholds) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, rule := range c {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rule.Keyword},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(rule.Threshold, 'f', -1, 64)},
		)
	}
	return node, nil
}

func (c CustomThresholds) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rule := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rule.Keyword)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(rule.Threshold, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *CustomThresholds) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("custom: ожидался объект")
	}

	var rules CustomThresholds
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		keyword, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("custom: неверный ключ %v", keyTok)
		}
		var threshold float64
		if err := dec.Decode(&threshold); err != nil {
			return fmt.Errorf("custom[%s]: %w", keyword, err)
		}
		rules = append(rules, ThresholdRule{Keyword: keyword, Threshold: threshold})
	}

	*c = rules
	return nil
}
