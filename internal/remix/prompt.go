package remix

import (
	"strings"

	"github.com/hpungsan/remixer/internal/errors"
)

// OutputType selects the generation task.
type OutputType string

const (
	OutputTweets OutputType = "tweets"
	OutputBlog   OutputType = "blog"
)

// ParseOutputType validates a user supplied output type.
func ParseOutputType(s string) (OutputType, error) {
	switch t := OutputType(strings.ToLower(strings.TrimSpace(s))); t {
	case OutputTweets, OutputBlog:
		return t, nil
	default:
		return "", errors.NewInvalidRequest(`outputType must be "tweets" or "blog"`)
	}
}

const tweetsPrompt = `You are a social media and finance expert.

You want your tweets to optimize for engagement and growth (read: likes, replies and retweets)
Remember the only reasons people post things on social media is:
1. To sound smart
2. To be funny
3. To look hot
4. To look rich

Return your response in this exact JSON format:
{
  "tweets": [
    {
      "content": "tweet text here",
      "isThread": false,
      "threadPosition": null
    }
  ]
}

For threads, set isThread to true and use threadPosition (1-based) to indicate the tweet's position in the thread. If a tweet is part of a thread, make sure that the content of the tweet is relevant to the thread.
Do not use any hashtags or emojis.
Please provide at least five tweets.

Here is the source material to respond to: `

const blogPrompt = `You are a professional content writer and editor. Your task is to create an engaging, well-structured blog post from the provided content.

The blog post should:
1. Have a compelling title
2. Be well-organized with clear sections
3. Include an introduction and conclusion
4. Be written in a professional yet conversational tone
5. Be optimized for both readability and SEO

Return your response in this exact JSON format:
{
  "blogPost": {
    "title": "The title of the blog post",
    "content": "The full content of the blog post with proper formatting"
  }
}

Here's the source material: `

// pdfInstruction accompanies a PDF document block.
const pdfInstruction = "Please read this PDF and extract its text content. Return just the text content without any additional commentary."

// BuildPrompt appends inputText to the template for t. The input is not
// escaped or interpreted.
func BuildPrompt(t OutputType, inputText string) string {
	if t == OutputBlog {
		return blogPrompt + inputText
	}
	return tweetsPrompt + inputText
}
