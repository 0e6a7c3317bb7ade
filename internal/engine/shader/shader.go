// Package shader provides OpenGL shader compilation utilities.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns the program ID or an error if compilation/linking fails.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	return link(vertShader, fragShader)
}

// CompileCompute compiles a compute shader into its own program.
func CompileCompute(src string) (uint32, error) {
	cs, err := compileShader(src, gl.COMPUTE_SHADER, "compute")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(cs)

	return link(cs)
}

// WorkGroupSize returns the local size a linked compute program declares.
func WorkGroupSize(program uint32) [3]int32 {
	var size [3]int32
	gl.GetProgramiv(program, gl.COMPUTE_WORK_GROUP_SIZE, &size[0])
	return size
}

// StorageBlockBinding returns the binding point of the named shader storage
// block, or -1 if the program has no such block.
func StorageBlockBinding(program uint32, block string) int32 {
	idx := gl.GetProgramResourceIndex(program, gl.SHADER_STORAGE_BLOCK, gl.Str(block+"\x00"))
	if idx == gl.INVALID_INDEX {
		return -1
	}
	prop := uint32(gl.BUFFER_BINDING)
	var binding int32
	gl.GetProgramResourceiv(program, gl.SHADER_STORAGE_BLOCK, idx, 1, &prop, 1, nil, &binding)
	return binding
}

func link(shaders ...uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", string(log))
	}

	return program, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}

	return shader, nil
}

// GetUniform returns the uniform location for the given name, or -1 if the
// uniform is not found or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
