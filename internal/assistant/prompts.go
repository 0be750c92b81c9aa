package assistant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"kmares/pkg/x/llm"
)

// RequestType selects the prompt and response mode.
type RequestType string

const (
	TypeChat         RequestType = "chat"
	TypeLearningPlan RequestType = "learning-plan"
	TypeSummary      RequestType = "summary"
	TypeWellness     RequestType = "wellness"
	TypeCareer       RequestType = "career"
	TypeCV           RequestType = "cv"
)

var systemPrompts = map[RequestType]string{
	TypeChat: `Bạn là KMA-RES AI, trợ lý học tập thông minh dành cho học sinh, sinh viên Việt Nam. Hãy trả lời các câu hỏi về bài học, phương pháp học, giải thích khái niệm một cách dễ hiểu bằng tiếng Việt. Sử dụng ví dụ thực tế và ngôn ngữ thân thiện. Giữ câu trả lời ngắn gọn nhưng đầy đủ thông tin.`,

	TypeLearningPlan: `Bạn là trợ lý học tập AI của KMA-RES. Hãy tạo lộ trình học cá nhân hóa dựa trên thông tin người dùng cung cấp. Trả lời bằng tiếng Việt và định dạng JSON với cấu trúc:
{
  "subject": "tên môn học",
  "weeklyGoals": ["mục tiêu 1", "mục tiêu 2", "mục tiêu 3", "mục tiêu 4"],
  "dailyTasks": [
    {"day": "Thứ 2", "tasks": ["nhiệm vụ 1", "nhiệm vụ 2"]},
    {"day": "Thứ 3", "tasks": ["nhiệm vụ 1", "nhiệm vụ 2"]},
    {"day": "Thứ 4", "tasks": ["nhiệm vụ 1", "nhiệm vụ 2"]},
    {"day": "Thứ 5", "tasks": ["nhiệm vụ 1", "nhiệm vụ 2"]},
    {"day": "Thứ 6", "tasks": ["nhiệm vụ 1", "nhiệm vụ 2"]},
    {"day": "Thứ 7", "tasks": ["nhiệm vụ 1"]},
    {"day": "Chủ nhật", "tasks": ["nhiệm vụ 1"]}
  ],
  "weakPointExplanation": "giải thích chi tiết cách cải thiện phần yếu",
  "tips": ["mẹo 1", "mẹo 2", "mẹo 3", "mẹo 4"]
}`,

	TypeSummary: `Bạn là trợ lý tóm tắt bài học AI của KMA-RES. Hãy phân tích và tóm tắt nội dung được cung cấp. Trả lời bằng tiếng Việt và định dạng JSON với cấu trúc:
{
  "mainPoints": ["ý chính 1", "ý chính 2", "ý chính 3", "ý chính 4", "ý chính 5"],
  "simpleExplanation": "giải thích đơn giản, dễ hiểu cho học sinh",
  "mindMap": "sơ đồ tư duy dạng text với ký tự unicode như ├── └── │",
  "keyTerms": [
    {"term": "thuật ngữ 1", "definition": "định nghĩa 1"},
    {"term": "thuật ngữ 2", "definition": "định nghĩa 2"},
    {"term": "thuật ngữ 3", "definition": "định nghĩa 3"}
  ]
}`,

	TypeWellness: `Bạn là trợ lý sức khỏe tinh thần AI của KMA-RES. Hãy phân tích tình trạng sức khỏe tinh thần và đưa ra lời khuyên phù hợp. Lưu ý: Đây không phải tư vấn y tế chuyên nghiệp. Trả lời bằng tiếng Việt và định dạng JSON với cấu trúc:
{
  "summary": "tóm tắt tình trạng",
  "recommendations": ["gợi ý cải thiện 1", "gợi ý 2"],
  "warnings": ["cảnh báo nếu có"],
  "activities": ["hoạt động đề xuất 1", "hoạt động 2", "hoạt động 3"]
}`,

	TypeCareer: `Bạn là trợ lý định hướng nghề nghiệp AI của KMA-RES. Hãy gợi ý các nghề nghiệp phù hợp dựa trên sở thích và kỹ năng. Trả lời bằng tiếng Việt và định dạng JSON với cấu trúc:
[
  {
    "career": "tên nghề nghiệp",
    "matchScore": 92,
    "description": "mô tả ngắn gọn",
    "skills": ["kỹ năng 1", "kỹ năng 2", "kỹ năng 3", "kỹ năng 4"],
    "path": ["bước 1", "bước 2", "bước 3", "bước 4", "bước 5"]
  }
]
Trả về 4 nghề nghiệp phù hợp nhất.`,

	TypeCV: `Bạn là trợ lý tạo CV AI của KMA-RES. Hãy tạo CV chuyên nghiệp dựa trên thông tin được cung cấp. Trả về CV dạng text với định dạng đẹp mắt sử dụng các ký tự unicode để tạo khung và bố cục. CV phải bằng tiếng Việt.`,
}

// Request is the body accepted by the assistant endpoint.
type Request struct {
	Type     RequestType    `json:"type"`
	Messages []llm.Message  `json:"messages,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Streams reports whether the upstream call uses a streamed response.
func (t RequestType) Streams() bool { return t == TypeChat }

func (t RequestType) Known() bool {
	_, ok := systemPrompts[t]
	return ok
}

// SystemPrompt returns the prompt for t, falling back to the chat prompt.
func SystemPrompt(t RequestType) string {
	if p, ok := systemPrompts[t]; ok {
		return p
	}
	return systemPrompts[TypeChat]
}

// BuildMessages assembles the upstream conversation for req. For chat with
// a non-empty history the history follows the system prompt; every other
// case sends the system prompt plus one rendered user message.
func BuildMessages(req Request) ([]llm.Message, error) {
	if !req.Type.Known() {
		return nil, fmt.Errorf("Unknown request type: %s", req.Type)
	}
	system := llm.Message{Role: "system", Content: SystemPrompt(req.Type)}
	if req.Type == TypeChat && len(req.Messages) > 0 {
		out := make([]llm.Message, 0, len(req.Messages)+1)
		out = append(out, system)
		return append(out, req.Messages...), nil
	}
	return []llm.Message{system, {Role: "user", Content: UserContent(req.Type, req.Data)}}, nil
}

// UserContent renders the per-type user message from data. Missing fields
// render as empty text.
func UserContent(t RequestType, data map[string]any) string {
	v := func(key string) string { return formatValue(data[key]) }
	switch t {
	case TypeLearningPlan:
		return fmt.Sprintf("Tạo lộ trình học cho môn: %s\nĐiểm hiện tại: %s/10\nPhần yếu cần cải thiện: %s",
			v("subject"), v("score"), v("weakPoints"))
	case TypeSummary:
		return "Tóm tắt nội dung bài học sau:\n\n" + v("content")
	case TypeWellness:
		return fmt.Sprintf("Phân tích tình trạng sức khỏe tinh thần:\n- Số giờ ngủ: %s giờ\n- Mức căng thẳng: %s/10\n- Tâm trạng: %s",
			v("sleepHours"), v("stressLevel"), v("mood"))
	case TypeCareer:
		return fmt.Sprintf("Gợi ý nghề nghiệp phù hợp dựa trên:\n- Sở thích: %s\n- Kỹ năng: %s",
			v("interests"), v("skills"))
	case TypeCV:
		return fmt.Sprintf("Tạo CV chuyên nghiệp với thông tin:\n- Họ tên: %s\n- Email: %s\n- Điện thoại: %s\n- Học vấn: %s\n- Kỹ năng: %s\n- Kinh nghiệm: %s",
			v("name"), v("email"), v("phone"), v("education"), v("skills"), v("experience"))
	default:
		return ""
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(x, ", ")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
